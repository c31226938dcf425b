package swap

import (
	"time"

	"rosterd/internal/domain/workflow"
)

// Request is one shift-swap request. The six snapshot fields (dates and the
// four original shift types) are captured at creation and never mutated; the
// execution protocol applies them instead of re-reading live shifts, so edits
// made after filing cannot leak into the exchange.
type Request struct {
	ID               string `json:"id"`
	RequesterID      string `json:"requesterId"`
	TargetID         string `json:"targetId"`
	RequesterShiftID string `json:"requesterShiftId"`
	TargetShiftID    string `json:"targetShiftId"`

	RequesterDate time.Time `json:"requesterDate"`
	TargetDate    time.Time `json:"targetDate"`
	RequesterType string    `json:"requesterType"`
	TargetType    string    `json:"targetType"`
	// Cross-date snapshots: the requester's type on the target's date and the
	// target's type on the requester's date. Empty when no such shift existed
	// (always empty for same-date swaps).
	RequesterCrossType string `json:"requesterCrossType,omitempty"`
	TargetCrossType    string `json:"targetCrossType,omitempty"`

	Status        workflow.Status `json:"status"`
	TLApprovedAt  *time.Time      `json:"tlApprovedAt,omitempty"`
	WFMApprovedAt *time.Time      `json:"wfmApprovedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
