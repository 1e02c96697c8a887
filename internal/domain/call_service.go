package domain

import "time"

// CallService associates a call with a catalog service. AssignedValue freezes
// the catalog price at attach time; later catalog edits do not alter it.
// The ordinally first association of a call is its base service.
type CallService struct {
	CallID        string
	ServiceID     string
	AssignedValue float64
	CreatedAt     time.Time
}

// TotalValue sums the assigned values of a call's current associations.
func TotalValue(items []CallService) float64 {
	var sum float64
	for _, item := range items {
		sum += item.AssignedValue
	}
	return sum
}
