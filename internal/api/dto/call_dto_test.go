package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServiceIDListAcceptsArray(t *testing.T) {
	var req CreateCallRequest
	payload := `{"name":"x","description":"y","serviceIds":["a","b"]}`

	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.Equal(t, ServiceIDList{"a", "b"}, req.ServiceIDs)
}

func TestServiceIDListAcceptsSingleString(t *testing.T) {
	var req CreateCallRequest
	payload := `{"serviceIds":"a"}`

	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.Equal(t, ServiceIDList{"a"}, req.ServiceIDs)
}

func TestServiceIDListAcceptsCommaSeparated(t *testing.T) {
	var req CreateCallRequest
	payload := `{"serviceIds":"a, b ,c"}`

	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.Equal(t, ServiceIDList{"a", "b", "c"}, req.ServiceIDs)
}

func TestServiceIDListRejectsOtherTypes(t *testing.T) {
	var req CreateCallRequest
	payload := `{"serviceIds":42}`

	require.Error(t, json.Unmarshal([]byte(payload), &req))
}

func TestServiceIDListEmptyString(t *testing.T) {
	var req CreateCallRequest
	payload := `{"serviceIds":" "}`

	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.Empty(t, req.ServiceIDs)
}
