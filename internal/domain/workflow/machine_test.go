package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/settings"
)

var (
	agentOwner  = Actor{UserID: "u-agent", Role: auth.RoleAgent, IsOwner: true}
	agentOther  = Actor{UserID: "u-other", Role: auth.RoleAgent}
	agentTarget = Actor{UserID: "u-target", Role: auth.RoleAgent, IsTarget: true}
	teamLead    = Actor{UserID: "u-tl", Role: auth.RoleTeamLead}
	wfm         = Actor{UserID: "u-wfm", Role: auth.RoleWorkforceManager}

	defaults = settings.Settings{AutoApproveOnTL: false, AllowLeaveExceptions: true}
)

func TestLeaveApprovalChain(t *testing.T) {
	d, err := Evaluate(KindLeave, StatusPendingTL, ActionApprove, teamLead, defaults)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingWFM, d.To)
	assert.True(t, d.SetTLApproved)
	assert.False(t, d.SetWFMApproved)

	d, err = Evaluate(KindLeave, StatusPendingWFM, ActionApprove, wfm, defaults)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, d.To)
	assert.True(t, d.SetWFMApproved)
}

func TestWFMApprovalSkipsTLStep(t *testing.T) {
	d, err := Evaluate(KindLeave, StatusPendingTL, ActionApprove, wfm, defaults)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, d.To)
	assert.True(t, d.SetTLApproved)
	assert.True(t, d.SetWFMApproved)
}

func TestAutoApproveOnTL(t *testing.T) {
	st := defaults
	st.AutoApproveOnTL = true

	d, err := Evaluate(KindSwap, StatusPendingTL, ActionApprove, teamLead, st)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, d.To)
	assert.True(t, d.SetTLApproved)
	assert.True(t, d.SetWFMApproved)
}

func TestTLCannotApproveAtWFMStep(t *testing.T) {
	_, err := Evaluate(KindLeave, StatusPendingWFM, ActionApprove, teamLead, defaults)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAgentCannotApprove(t *testing.T) {
	_, err := Evaluate(KindLeave, StatusPendingTL, ActionApprove, agentOwner, defaults)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOwnerCancel(t *testing.T) {
	for _, from := range []Status{StatusPendingTL, StatusPendingWFM} {
		d, err := Evaluate(KindLeave, from, ActionCancel, agentOwner, defaults)
		require.NoError(t, err, "cancel from %s", from)
		assert.Equal(t, StatusRejected, d.To)

		_, err = Evaluate(KindLeave, from, ActionCancel, agentOther, defaults)
		assert.ErrorIs(t, err, ErrForbidden, "non-owner cancel from %s", from)
	}
}

func TestTerminalStatesAcceptNoAction(t *testing.T) {
	for _, from := range []Status{StatusApproved, StatusRejected} {
		for _, action := range []Action{ActionAccept, ActionApprove, ActionReject, ActionCancel, ActionAskException} {
			_, err := Evaluate(KindLeave, from, action, wfm, defaults)
			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid, "%s on %s", action, from)
			assert.Equal(t, from, invalid.From)
		}
	}
	assert.True(t, Terminal(StatusApproved))
	assert.True(t, Terminal(StatusRejected))
	assert.False(t, Terminal(StatusDenied))
}

func TestDeniedExceptionPath(t *testing.T) {
	d, err := Evaluate(KindLeave, StatusDenied, ActionAskException, agentOwner, defaults)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingTL, d.To)

	st := defaults
	st.AllowLeaveExceptions = false
	_, err = Evaluate(KindLeave, StatusDenied, ActionAskException, agentOwner, st)
	assert.ErrorIs(t, err, ErrExceptionsDisabled)

	_, err = Evaluate(KindLeave, StatusDenied, ActionAskException, agentOther, defaults)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSwapAcceptance(t *testing.T) {
	d, err := Evaluate(KindSwap, StatusPendingAcceptance, ActionAccept, agentTarget, defaults)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingTL, d.To)

	// Only the target may accept; the requester or an approver may not.
	for _, actor := range []Actor{agentOwner, teamLead, wfm} {
		_, err := Evaluate(KindSwap, StatusPendingAcceptance, ActionAccept, actor, defaults)
		assert.ErrorIs(t, err, ErrForbidden, "role %s", actor.Role)
	}

	d, err = Evaluate(KindSwap, StatusPendingAcceptance, ActionCancel, agentOwner, defaults)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, d.To)
}

func TestSwapHasNoExceptionPath(t *testing.T) {
	_, err := Evaluate(KindSwap, StatusDenied, ActionAskException, agentOwner, defaults)
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestUnknownActionOutOfPending(t *testing.T) {
	_, err := Evaluate(KindLeave, StatusPendingTL, ActionAccept, agentTarget, defaults)
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, KindLeave, invalid.Kind)
	assert.Equal(t, ActionAccept, invalid.Action)
}

func TestEntryStatus(t *testing.T) {
	assert.Equal(t, StatusPendingTL, EntryStatus(KindLeave))
	assert.Equal(t, StatusPendingAcceptance, EntryStatus(KindSwap))
}

func TestConcurrencyConflictErrorMessage(t *testing.T) {
	err := &ConcurrencyConflictError{Expected: StatusPendingTL, Actual: StatusApproved}
	assert.Contains(t, err.Error(), "pending_tl")
	assert.Contains(t, err.Error(), "approved")
	var conflict *ConcurrencyConflictError
	assert.True(t, errors.As(err, &conflict))
}
