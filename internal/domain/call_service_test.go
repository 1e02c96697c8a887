package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalValueSumsSnapshots(t *testing.T) {
	items := []CallService{
		{CallID: "c1", ServiceID: "s1", AssignedValue: 150.00},
		{CallID: "c1", ServiceID: "s2", AssignedValue: 45.00},
	}
	assert.Equal(t, 195.00, TotalValue(items))

	assert.Equal(t, 150.00, TotalValue(items[:1]))
	assert.Zero(t, TotalValue(nil))
}
