package dto

import (
	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

// CriteriaRequest carries a filter document in either of its forms
type CriteriaRequest struct {
	Filter filter.Criteria `json:"filter"`
}

// ValidateCriteriaResponse reports the normalized forms of a valid document
type ValidateCriteriaResponse struct {
	Filter filter.Criteria `json:"filter"`
	Legacy string          `json:"legacy"`
}

// PreviewResponse lists the incidents a filter selects
type PreviewResponse struct {
	Incidents []*incident.Incident `json:"incidents"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
}
