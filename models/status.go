package models

import "sort"

// Action is a moderation decision applied to a reviewable record.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

type WorkAccountStatus string

const (
	WorkAccountPending  WorkAccountStatus = "pending"
	WorkAccountApproved WorkAccountStatus = "approved"
	WorkAccountRejected WorkAccountStatus = "rejected"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
)

// Transitions maps a state and an action to the resulting state. A missing
// entry means the action is not allowed from that state.
type Transitions[S ~string] map[S]map[Action]S

var SubmissionFlow = Transitions[SubmissionStatus]{
	SubmissionPending: {
		ActionApprove: SubmissionApproved,
		ActionReject:  SubmissionRejected,
	},
}

var WorkAccountFlow = Transitions[WorkAccountStatus]{
	WorkAccountPending: {
		ActionApprove: WorkAccountApproved,
		ActionReject:  WorkAccountRejected,
	},
}

var WithdrawalFlow = Transitions[WithdrawalStatus]{
	WithdrawalPending: {
		ActionApprove: WithdrawalApproved,
		ActionReject:  WithdrawalRejected,
	},
}

// UserFlow lets an admin reverse an earlier decision on a user.
var UserFlow = Transitions[UserStatus]{
	UserPending: {
		ActionApprove: UserApproved,
		ActionReject:  UserRejected,
	},
	UserApproved: {
		ActionReject: UserRejected,
	},
	UserRejected: {
		ActionApprove: UserApproved,
	},
}

func (t Transitions[S]) Next(from S, a Action) (S, bool) {
	to, ok := t[from][a]
	return to, ok
}

// Sources returns every state from which a is allowed, sorted so the result
// can be used directly in an IN clause.
func (t Transitions[S]) Sources(a Action) []S {
	var out []S
	for from, actions := range t {
		if _, ok := actions[a]; ok {
			out = append(out, from)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Target returns the single state a leads to. All flows here are
// deterministic per action, which the tests assert.
func (t Transitions[S]) Target(a Action) (S, bool) {
	var zero S
	for _, actions := range t {
		if to, ok := actions[a]; ok {
			return to, true
		}
	}
	return zero, false
}

// Terminal reports whether no action is allowed from s.
func (t Transitions[S]) Terminal(s S) bool {
	return len(t[s]) == 0
}

func ParseWorkAccountStatus(s string) (WorkAccountStatus, bool) {
	switch st := WorkAccountStatus(s); st {
	case WorkAccountPending, WorkAccountApproved, WorkAccountRejected:
		return st, true
	}
	return "", false
}

func ParseSubmissionStatus(s string) (SubmissionStatus, bool) {
	switch st := SubmissionStatus(s); st {
	case SubmissionPending, SubmissionApproved, SubmissionRejected:
		return st, true
	}
	return "", false
}

func ParseWithdrawalStatus(s string) (WithdrawalStatus, bool) {
	switch st := WithdrawalStatus(s); st {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected:
		return st, true
	}
	return "", false
}

func ParseUserStatus(s string) (UserStatus, bool) {
	switch st := UserStatus(s); st {
	case UserPending, UserApproved, UserRejected:
		return st, true
	}
	return "", false
}
