package models

import (
	"time"

	"github.com/google/uuid"
)

// Write actions
const (
	ActionApprove          = "approve"
	ActionContribute       = "contribute"
	ActionCreateRound      = "create_round"
	ActionAddMatchingFunds = "add_matching_funds"
	ActionFinalizeRound    = "finalize_round"
	ActionRegisterProject  = "register_project"
	ActionUpdateProject    = "update_project"
	ActionToggleProject    = "toggle_project"
	ActionRemoveProject    = "remove_project"
)

var AllActions = []string{
	ActionApprove, ActionContribute, ActionCreateRound, ActionAddMatchingFunds, ActionFinalizeRound,
	ActionRegisterProject, ActionUpdateProject, ActionToggleProject, ActionRemoveProject,
}

// Action states
const (
	ActionStateIdle                 = "idle"
	ActionStateSubmitting           = "submitting"
	ActionStateAwaitingConfirmation = "awaiting_confirmation"
	ActionStateSucceeded            = "succeeded"
	ActionStateFailed               = "failed"
)

// Valid action state transitions: from -> []to
var ValidActionTransitions = map[string][]string{
	ActionStateIdle:                 {ActionStateSubmitting},
	ActionStateSubmitting:           {ActionStateAwaitingConfirmation, ActionStateFailed},
	ActionStateAwaitingConfirmation: {ActionStateSucceeded, ActionStateFailed},
	ActionStateSucceeded:            {ActionStateIdle},
	ActionStateFailed:               {ActionStateIdle},
}

func IsValidTransition(from, to string) bool {
	return allowed(ValidActionTransitions, from, to)
}

// Approve-then-act phases
const (
	PhaseIdle      = "idle"
	PhaseApproving = "approving"
	PhaseApproved  = "approved"
	PhaseActing    = "acting"
	PhaseDone      = "done"
)

// Approval may be skipped (idle -> approved) when allowance already covers the amount.
// A failed approval returns to idle; a failed act is terminal for the sequence.
var ValidPhaseTransitions = map[string][]string{
	PhaseIdle:      {PhaseApproving, PhaseApproved},
	PhaseApproving: {PhaseApproved, PhaseIdle},
	PhaseApproved:  {PhaseActing},
	PhaseActing:    {PhaseDone},
	PhaseDone:      {},
}

func IsValidPhaseTransition(from, to string) bool {
	return allowed(ValidPhaseTransitions, from, to)
}

func allowed(table map[string][]string, from, to string) bool {
	next, ok := table[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// ActionRecord is one journaled write attempt.
type ActionRecord struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Actor       string    `json:"actor"`
	Target      *string   `json:"target,omitempty"`
	Amount      *string   `json:"amount,omitempty"`
	State       string    `json:"state"`
	TxHash      *string   `json:"tx_hash,omitempty"`
	BlockNumber *uint64   `json:"block_number,omitempty"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
