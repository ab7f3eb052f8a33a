package session

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Action is one native call or milestone in a staged sequence.
type Action string

const (
	ActionCue      Action = "cue"
	ActionStart    Action = "start"
	ActionCancel   Action = "cancel"
	ActionStop     Action = "stop"
	ActionDestroy  Action = "destroy"
	ActionComplete Action = "complete"
)

// Step runs Action After the previous step (or the sequence start).
type Step struct {
	After  time.Duration
	Action Action
}

// Timing holds every delay used to open and close a session.
type Timing struct {
	SessionTimeout time.Duration
	EndFallback    time.Duration

	WakePrep         time.Duration
	ProgrammaticPrep time.Duration
	StartDelay       time.Duration

	// Natural-end teardown, both measured from teardown start.
	PostEndCancel   time.Duration
	PostEndComplete time.Duration

	// Full teardown, each measured from the previous stage.
	CancelDelay   time.Duration
	DestroyDelay  time.Duration
	CompleteDelay time.Duration

	DisplayClear time.Duration
	SpeakGuard   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		SessionTimeout:   15 * time.Second,
		EndFallback:      2500 * time.Millisecond,
		WakePrep:         2000 * time.Millisecond,
		ProgrammaticPrep: 1200 * time.Millisecond,
		StartDelay:       200 * time.Millisecond,
		PostEndCancel:    100 * time.Millisecond,
		PostEndComplete:  2000 * time.Millisecond,
		CancelDelay:      400 * time.Millisecond,
		DestroyDelay:     800 * time.Millisecond,
		CompleteDelay:    1200 * time.Millisecond,
		DisplayClear:     1200 * time.Millisecond,
		SpeakGuard:       30 * time.Second,
	}
}

// StartPlan is the sequence run after the microphone has been reclaimed:
// settle, play the listen cue, settle again, start recognition.
func StartPlan(origin Origin, t Timing) []Step {
	prep := t.ProgrammaticPrep
	if origin == OriginWake {
		prep = t.WakePrep
	}
	return []Step{
		{After: prep, Action: ActionCue},
		{After: t.StartDelay, Action: ActionStart},
	}
}

// Policy selects how a recognizer is released.
type Policy struct {
	Name string
	// DestroyAfterNaturalEnd runs the full cancel/destroy sequence even when
	// the recognizer already reported a natural end.
	DestroyAfterNaturalEnd bool
}

const (
	PolicySkipDestroyOnEnd = "skip-destroy-on-end"
	PolicyAlwaysDestroy    = "always-destroy"
)

var policies = map[string]Policy{
	PolicySkipDestroyOnEnd: {Name: PolicySkipDestroyOnEnd},
	PolicyAlwaysDestroy:    {Name: PolicyAlwaysDestroy, DestroyAfterNaturalEnd: true},
}

var policyAliases = map[string]string{
	"android": PolicySkipDestroyOnEnd,
	"ios":     PolicyAlwaysDestroy,
	"linux":   PolicyAlwaysDestroy,
}

func DefaultPolicy() Policy {
	return policies[PolicySkipDestroyOnEnd]
}

// LookupPolicy resolves a policy name or platform alias.
func LookupPolicy(name string) (Policy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return DefaultPolicy(), nil
	}
	if alias, ok := policyAliases[key]; ok {
		key = alias
	}
	if p, ok := policies[key]; ok {
		return p, nil
	}
	return Policy{}, fmt.Errorf("unknown teardown policy %q (want one of: %s)", name, strings.Join(PolicyNames(), ", "))
}

// PolicyNames lists accepted policy names and aliases.
func PolicyNames() []string {
	names := make([]string, 0, len(policies)+len(policyAliases))
	for name := range policies {
		names = append(names, name)
	}
	for alias := range policyAliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// TeardownPlan returns the release sequence for a session.
func (p Policy) TeardownPlan(sawNaturalEnd bool, t Timing) []Step {
	if sawNaturalEnd && !p.DestroyAfterNaturalEnd {
		remaining := t.PostEndComplete - t.PostEndCancel
		if remaining < 0 {
			remaining = 0
		}
		return []Step{
			{After: t.PostEndCancel, Action: ActionCancel},
			{After: remaining, Action: ActionComplete},
		}
	}
	return []Step{
		{After: t.CancelDelay, Action: ActionCancel},
		{After: t.DestroyDelay, Action: ActionDestroy},
		{After: t.CompleteDelay, Action: ActionComplete},
	}
}

// Total is the time from sequence start to the last step.
func Total(steps []Step) time.Duration {
	var total time.Duration
	for _, step := range steps {
		total += step.After
	}
	return total
}
