package engine

import (
	"strconv"

	"github.com/prestond28/road-trip-game-box/internal/fsm"
)

// Status is a point-in-time snapshot, refreshed after every serialized step.
type Status struct {
	Started        bool
	State          fsm.State
	SessionID      string
	Generation     uint64
	Origin         string
	Speaking       bool
	WakeActive     bool
	WakeDeferred   bool
	AwaitingAnswer bool
	PendingListen  bool
	ResultShowing  bool
	LastPartial    string
	LastResult     string
}

// Status returns the latest snapshot. It never blocks on the serializer.
// AwaitingAnswer is owned by the bus and read live.
func (e *Engine) Status() Status {
	st := Status{State: fsm.StateIdle}
	if s := e.status.Load(); s != nil {
		st = *s
	}
	st.AwaitingAnswer = e.bus.IsAwaitingAnswer()
	return st
}

func (e *Engine) refreshStatus() {
	st := &Status{
		Started:       e.started && !e.closed,
		State:         fsm.StateIdle,
		Speaking:      e.speaking.IsSpeaking(),
		WakeActive:    e.wake.IsActive(),
		WakeDeferred:  e.wake.Deferred(),
		PendingListen: e.pendingListen,
		ResultShowing: e.resultShowing,
		LastResult:    e.lastResult,
	}
	if s := e.current; s != nil {
		st.State = s.State
		st.SessionID = s.ID
		st.Generation = s.Generation
		st.Origin = string(s.Origin)
		st.LastPartial = s.LastPartialText
	}
	e.status.Store(st)
}

// Details flattens the snapshot for IPC and gateway responses.
func (s Status) Details() map[string]string {
	details := map[string]string{
		"started":         strconv.FormatBool(s.Started),
		"speaking":        strconv.FormatBool(s.Speaking),
		"wake_active":     strconv.FormatBool(s.WakeActive),
		"wake_deferred":   strconv.FormatBool(s.WakeDeferred),
		"awaiting_answer": strconv.FormatBool(s.AwaitingAnswer),
		"pending_listen":  strconv.FormatBool(s.PendingListen),
	}
	if s.SessionID != "" {
		details["session_id"] = s.SessionID
		details["generation"] = strconv.FormatUint(s.Generation, 10)
		details["origin"] = s.Origin
	}
	if s.LastPartial != "" {
		details["last_partial"] = s.LastPartial
	}
	if s.LastResult != "" {
		details["last_result"] = s.LastResult
	}
	return details
}
