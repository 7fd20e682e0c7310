package request

import "travelwithstudents/pkg/utils"

type PaginatedRequest struct {
	Page    int `json:"page" validate:"omitempty,min=1"`
	PerPage int `json:"per_page" validate:"omitempty,min=1,max=100"`
}

func (r *PaginatedRequest) Limit() int {
	if r.PerPage < 1 {
		return 10
	}
	if r.PerPage > 100 {
		return 100
	}
	return r.PerPage
}

func (r *PaginatedRequest) Offset() int {
	return utils.CalculateOffset(r.Page, r.Limit())
}
