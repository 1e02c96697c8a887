package dto

// Pagination describes the page window of a list response.
type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"perPage"`
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
}

// NewPagination computes the page summary for a list response.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	totalPages := total / perPage
	if total%perPage != 0 {
		totalPages++
	}
	return Pagination{
		Page:         page,
		PerPage:      perPage,
		TotalRecords: total,
		TotalPages:   totalPages,
	}
}

// MessageResponse wraps a confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}
