package leave

import (
	"time"

	"rosterd/internal/domain/workflow"
)

const MaxNoteLength = 2000

type Request struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	LeaveType     string          `json:"leaveType"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	Days          float64         `json:"days"`
	Status        workflow.Status `json:"status"`
	TLApprovedAt  *time.Time      `json:"tlApprovedAt,omitempty"`
	WFMApprovedAt *time.Time      `json:"wfmApprovedAt,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Balance struct {
	UserID    string    `json:"userId"`
	LeaveType string    `json:"leaveType"`
	Balance   float64   `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeaveType is one entry of the configurable leave type set. AccrualRate is
// credited to every user's balance by the monthly accrual job.
type LeaveType struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	AccrualRate float64 `json:"accrualRate"`
}
