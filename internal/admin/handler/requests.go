package handler

import (
	"strings"

	dErrors "alumnireg/pkg/domain-errors"
)

// ContributionRequest sets a registration's cumulative contribution.
type ContributionRequest struct {
	ContributionTotal *int64 `json:"contribution_total"`
	Reason            string `json:"reason" validate:"required,max=500"`
}

func (r *ContributionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ContributionTotal == nil {
		return dErrors.New(dErrors.CodeValidation, "contribution_total is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
