package workflow

// Kind distinguishes the two request entities that share the transition table.
type Kind string

const (
	KindLeave Kind = "leave"
	KindSwap  Kind = "swap"
)

type Status string

const (
	StatusPendingAcceptance Status = "pending_acceptance"
	StatusPendingTL         Status = "pending_tl"
	StatusPendingWFM        Status = "pending_wfm"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusDenied            Status = "denied"
)

type Action string

const (
	ActionAccept       Action = "accept"
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionCancel       Action = "cancel"
	ActionAskException Action = "ask_exception"
)

// Terminal reports whether no transition leaves the given status.
// Denied is not terminal: the owner may ask for an exception.
func Terminal(s Status) bool {
	return s == StatusApproved || s == StatusRejected
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPendingAcceptance, StatusPendingTL, StatusPendingWFM,
		StatusApproved, StatusRejected, StatusDenied:
		return true
	}
	return false
}

func ValidAction(a Action) bool {
	switch a {
	case ActionAccept, ActionApprove, ActionReject, ActionCancel, ActionAskException:
		return true
	}
	return false
}
