package report

import (
	"time"

	"github.com/PKA-OpenLD/FORMS-app-sub000/internal/geo"
)

// Report is a community-submitted field observation (flooded road,
// downed line, blocked drain) pinned to the map.
//
// Reports are append-only: they are never edited, only listed and aged
// out by the operator. UserID is the submitter's connection identity
// when known, empty for anonymous submissions.
type Report struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
