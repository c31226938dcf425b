package workflow

import (
	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/settings"
)

// Actor is the acting user as seen by the guard table. IsOwner and IsTarget are
// resolved by the calling service against the request row, not trusted from input.
type Actor struct {
	UserID   string
	Role     string
	IsOwner  bool
	IsTarget bool
}

// Decision is the computed outcome of a transition: the next status plus which
// approval timestamps the conditional update must set.
type Decision struct {
	To             Status
	SetTLApproved  bool
	SetWFMApproved bool
}

type key struct {
	kind   Kind
	from   Status
	action Action
}

// transition pairs a guard with an outcome function. The outcome may consult
// settings (auto-approve, exceptions) at decision time.
type transition struct {
	guard   func(a Actor) bool
	outcome func(a Actor, st settings.Settings) (Decision, error)
}

func isWFM(a Actor) bool { return a.Role == auth.RoleWorkforceManager }

func approver(a Actor) bool { return a.Role == auth.RoleTeamLead || isWFM(a) }
func owner(a Actor) bool    { return a.IsOwner }
func target(a Actor) bool   { return a.IsTarget }

func to(s Status) func(Actor, settings.Settings) (Decision, error) {
	return func(Actor, settings.Settings) (Decision, error) {
		return Decision{To: s}, nil
	}
}

// approveFromTL collapses straight to approved when the actor is a WFM
// (manager authority supersedes the team-lead step) or when auto-approve is on;
// both paths stamp the timestamps for every step they cover.
func approveFromTL(a Actor, st settings.Settings) (Decision, error) {
	if isWFM(a) || st.AutoApproveOnTL {
		return Decision{To: StatusApproved, SetTLApproved: true, SetWFMApproved: true}, nil
	}
	return Decision{To: StatusPendingWFM, SetTLApproved: true}, nil
}

func approveFromWFM(Actor, settings.Settings) (Decision, error) {
	return Decision{To: StatusApproved, SetWFMApproved: true}, nil
}

func askException(_ Actor, st settings.Settings) (Decision, error) {
	if !st.AllowLeaveExceptions {
		return Decision{}, ErrExceptionsDisabled
	}
	return Decision{To: StatusPendingTL}, nil
}

var table = map[key][]transition{
	// Leave requests: pending_tl -> pending_wfm -> approved, rejection from
	// either pending state, owner cancel, and the denied retry path.
	{KindLeave, StatusPendingTL, ActionApprove}:  {{guard: approver, outcome: approveFromTL}},
	{KindLeave, StatusPendingTL, ActionReject}:   {{guard: approver, outcome: to(StatusRejected)}},
	{KindLeave, StatusPendingTL, ActionCancel}:   {{guard: owner, outcome: to(StatusRejected)}},
	{KindLeave, StatusPendingWFM, ActionApprove}: {{guard: isWFM, outcome: approveFromWFM}},
	{KindLeave, StatusPendingWFM, ActionReject}:  {{guard: approver, outcome: to(StatusRejected)}},
	{KindLeave, StatusPendingWFM, ActionCancel}:  {{guard: owner, outcome: to(StatusRejected)}},
	{KindLeave, StatusDenied, ActionAskException}: {
		{guard: owner, outcome: askException},
	},

	// Swap requests add the counterpart acceptance step in front of the chain.
	{KindSwap, StatusPendingAcceptance, ActionAccept}: {{guard: target, outcome: to(StatusPendingTL)}},
	{KindSwap, StatusPendingAcceptance, ActionCancel}: {{guard: owner, outcome: to(StatusRejected)}},
	{KindSwap, StatusPendingTL, ActionApprove}:        {{guard: approver, outcome: approveFromTL}},
	{KindSwap, StatusPendingTL, ActionReject}:         {{guard: approver, outcome: to(StatusRejected)}},
	{KindSwap, StatusPendingTL, ActionCancel}:         {{guard: owner, outcome: to(StatusRejected)}},
	{KindSwap, StatusPendingWFM, ActionApprove}:       {{guard: isWFM, outcome: approveFromWFM}},
	{KindSwap, StatusPendingWFM, ActionReject}:        {{guard: approver, outcome: to(StatusRejected)}},
}

// Evaluate computes the transition decision for a request of the given kind
// currently in status from. It never mutates anything: the caller applies the
// decision through a conditional update keyed on (id, from).
func Evaluate(kind Kind, from Status, action Action, actor Actor, st settings.Settings) (Decision, error) {
	candidates, ok := table[key{kind, from, action}]
	if !ok {
		return Decision{}, &InvalidTransitionError{Kind: kind, From: from, Action: action}
	}
	for _, t := range candidates {
		if t.guard(actor) {
			return t.outcome(actor, st)
		}
	}
	return Decision{}, ErrForbidden
}

// EntryStatus is the state a freshly created request starts in.
func EntryStatus(kind Kind) Status {
	if kind == KindSwap {
		return StatusPendingAcceptance
	}
	return StatusPendingTL
}
