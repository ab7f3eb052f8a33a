// Package engine arbitrates the microphone and speaker between the wake
// listener, recognition sessions and speech output.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/bus"
	"github.com/prestond28/road-trip-game-box/internal/clock"
	"github.com/prestond28/road-trip-game-box/internal/fsm"
	"github.com/prestond28/road-trip-game-box/internal/indicator"
	"github.com/prestond28/road-trip-game-box/internal/logging"
	"github.com/prestond28/road-trip-game-box/internal/recognizer"
	"github.com/prestond28/road-trip-game-box/internal/session"
	"github.com/prestond28/road-trip-game-box/internal/speaker"
	"github.com/prestond28/road-trip-game-box/internal/wake"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrAlreadyStarted = errors.New("engine already started")
	ErrNotStarted     = errors.New("engine not started")
	ErrShutdown       = errors.New("engine shut down")
	ErrNoOutput       = errors.New("no speech output configured")
)

// Settings are the tunables the engine reads on every session.
type Settings struct {
	Timing  session.Timing
	Policy  session.Policy
	Benign  recognizer.BenignPolicy
	Matcher session.Matcher
	Locale  string
	Options recognizer.Options
}

// DefaultSettings returns the stock timing, policy and recognizer options.
func DefaultSettings() Settings {
	return Settings{
		Timing:  session.DefaultTiming(),
		Policy:  session.DefaultPolicy(),
		Benign:  recognizer.DefaultBenignPolicy(),
		Matcher: session.DefaultMatcher(),
		Locale:  "en-US",
		Options: recognizer.DefaultOptions(),
	}
}

// Options wires collaborators. Nil fields fall back to inert defaults.
type Options struct {
	Settings   Settings
	Bus        *bus.Bus
	Wake       *wake.Guard
	Recognizer recognizer.Recognizer
	Output     speaker.Output
	Indicator  indicator.Controller
	Clock      clock.Clock
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

// Engine is the single enforcement point for microphone ownership. Every
// external signal and timer is posted to a serializer, so engine state is
// only ever touched by one closure at a time.
type Engine struct {
	settings Settings
	logger   *slog.Logger
	bus      *bus.Bus
	wake     *wake.Guard
	rec      recognizer.Recognizer
	out      speaker.Output
	ind      indicator.Controller
	clock    clock.Clock
	tracer   trace.Tracer
	speaking *speaker.Guard

	mu      sync.Mutex
	queue   []func()
	running bool

	// Owned by the serializer.
	ctx           context.Context
	started       bool
	closed        bool
	generation    uint64
	current       *session.Session
	detach        func()
	plan          clock.Timer
	pendingListen bool
	resultShowing bool
	lastResult    string
	span          trace.Span
	speakTimer    clock.Timer

	status       atomic.Pointer[Status]
	subs         []bus.Subscription
	done         chan struct{}
	shutdownOnce sync.Once
}

// New wires an engine. Call Start to begin listening for the wake phrase.
func New(opts Options) *Engine {
	logger := logging.OrDiscard(opts.Logger)
	e := &Engine{
		settings: opts.Settings,
		logger:   logger,
		bus:      opts.Bus,
		wake:     opts.Wake,
		rec:      opts.Recognizer,
		out:      opts.Output,
		ind:      opts.Indicator,
		clock:    opts.Clock,
		tracer:   opts.Tracer,
		ctx:      context.Background(),
		done:     make(chan struct{}),
	}
	if e.bus == nil {
		e.bus = bus.New(logger)
	}
	if e.wake == nil {
		e.wake = wake.NewGuard(wake.NewManualDetector(), logger)
	}
	if e.rec == nil {
		e.rec = recognizer.NewUnavailable(nil)
	}
	if e.ind == nil {
		e.ind = indicator.Nop{}
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.tracer == nil {
		e.tracer = defaultTracer()
	}
	if e.settings.Locale == "" {
		e.settings.Locale = "en-US"
	}
	e.speaking = speaker.NewGuard(e.clock, e.settings.Timing.DisplayClear, e.clearResult)
	e.refreshStatus()
	return e
}

// Bus returns the event bus the engine publishes on.
func (e *Engine) Bus() *bus.Bus {
	return e.bus
}

// Start subscribes to bus requests and output signals, then starts the wake
// listener. A wake listener that cannot start is alerted, not returned.
// Start called from inside a serialized step is queued and returns nil.
func (e *Engine) Start(ctx context.Context) error {
	var err error
	if !e.post(func() {
		switch {
		case e.closed:
			err = ErrShutdown
			return
		case e.started:
			err = ErrAlreadyStarted
			return
		}
		e.started = true
		e.ctx = context.WithoutCancel(ctx)

		e.subs = append(e.subs,
			e.bus.OnRequestListen(e.RequestProgrammaticListen),
			e.bus.OnSpeakRequest(func(text string) {
				if err := e.Speak(e.ctx, text); err != nil {
					e.logger.Warn("speak request rejected", "error", err)
				}
			}),
		)
		e.wake.OnWake(e.OnWakeTriggered)
		if e.out != nil {
			e.out.SetListener(speaker.Listener{
				OnStart:  e.onSpeakStart,
				OnFinish: e.onSpeakEnd,
				OnCancel: e.onSpeakEnd,
			})
		}

		e.logger.Info("engine started",
			"policy", e.settings.Policy.Name,
			"locale", e.settings.Locale,
		)
		e.resumeWake()
	}) {
		return nil
	}
	return err
}

// Done is closed once Shutdown has released every subsystem.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Shutdown tears everything down immediately, without staged delays. When
// the engine is busy, including a call from a bus handler, the teardown is
// queued behind the current step; Done reports completion.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.post(e.shutdown)
	})
}

func (e *Engine) shutdown() {
	e.closed = true
	for _, unsubscribe := range e.subs {
		unsubscribe()
	}
	e.subs = nil
	e.pendingListen = false
	e.stopPlan()
	e.stopSpeakTimer()

	if s := e.current; s != nil {
		first := s.RequestCleanup()
		s.StopTimers()
		e.detachListener()
		if first {
			e.bus.EmitListening(false)
		}
		e.callRecognizer("cancel", e.rec.Cancel)
		e.callRecognizer("destroy", e.rec.Destroy)
		e.completeSession(s, "shutdown")
	}

	if err := e.wake.Stop(); err != nil {
		e.logger.Debug("wake stop failed during shutdown", "error", err)
	}
	e.ind.Hide(e.ctx)
	if e.out != nil {
		if err := e.out.Stop(); err != nil {
			e.logger.Debug("speech output stop failed during shutdown", "error", err)
		}
	}
	e.logger.Info("engine shut down")
	close(e.done)
}

// OnWakeTriggered handles a wake-phrase detection.
func (e *Engine) OnWakeTriggered() {
	e.post(func() {
		switch {
		case e.closed || !e.started:
			return
		case e.speaking.IsSpeaking():
			e.logger.Debug("wake ignored while speaking")
			return
		case e.current != nil:
			e.logger.Debug("wake ignored; session in progress", "session", e.current.ID)
			return
		}
		e.bus.EmitWake()
		e.beginSession(session.OriginWake)
	})
}

// RequestProgrammaticListen opens a session without a wake trigger. While
// speaking or while a session is being torn down the request is held and
// replayed once the blocking condition clears.
func (e *Engine) RequestProgrammaticListen() {
	e.post(func() {
		switch {
		case e.closed || !e.started:
			return
		case e.speaking.IsSpeaking() || (e.current != nil && e.current.CleanupRequested):
			if !e.pendingListen {
				e.logger.Info("listen request deferred")
			}
			e.pendingListen = true
			return
		case e.current != nil:
			e.logger.Debug("listen request ignored; session already active", "session", e.current.ID)
			return
		}
		e.beginSession(session.OriginProgrammatic)
	})
}

// CancelSession tears down the active session, if any. Called while the
// engine is busy (for example from a result handler) the cancel is queued
// behind the current step and the return value reflects the latest status.
func (e *Engine) CancelSession(reason string) bool {
	st := e.Status().State
	active := st == fsm.StateStarting || st == fsm.StateListening
	var cancelled bool
	if !e.post(func() {
		e.pendingListen = false
		if !e.current.Active() {
			return
		}
		cancelled = true
		e.requestTeardown(e.current, reason)
	}) {
		return active
	}
	return cancelled
}

// Speak starts text on the speech output. It returns once output has
// started; the speak guard stops output that runs longer than allowed.
func (e *Engine) Speak(ctx context.Context, text string) error {
	if e.out == nil {
		return ErrNoOutput
	}
	if err := e.ready(); err != nil {
		return err
	}
	done, err := e.out.Speak(ctx, text)
	if err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	e.post(func() { e.armSpeakTimer(done) })
	return nil
}

// Say speaks text and blocks until output finishes or the guard expires.
func (e *Engine) Say(ctx context.Context, text string) error {
	if e.out == nil {
		return ErrNoOutput
	}
	if err := e.ready(); err != nil {
		return err
	}
	return speaker.Say(ctx, e.out, text, e.settings.Timing.SpeakGuard)
}

// StopSpeaking cancels speech output in progress.
func (e *Engine) StopSpeaking() error {
	if e.out == nil {
		return ErrNoOutput
	}
	return e.out.Stop()
}

// TriggerWake injects a wake detection through the running listener.
func (e *Engine) TriggerWake() bool {
	return e.wake.Fire()
}

func (e *Engine) ready() error {
	select {
	case <-e.done:
		return ErrShutdown
	default:
	}
	if !e.Status().Started {
		return ErrNotStarted
	}
	return nil
}

// post runs fn on the serializer. If the serializer is idle the caller
// drains the queue itself and post reports true: fn has run by the time it
// returns. Otherwise fn is queued behind the running step, which may belong
// to this very goroutine, and post returns false without waiting.
func (e *Engine) post(fn func()) bool {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	if e.running {
		e.mu.Unlock()
		return false
	}
	e.running = true

	for len(e.queue) > 0 {
		next := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.run(next)

		e.mu.Lock()
	}
	e.running = false
	e.mu.Unlock()
	return true
}

func (e *Engine) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine step panicked", "panic", fmt.Sprint(r))
		}
		e.checkInvariants()
		e.refreshStatus()
	}()
	fn()
}

// after arms a timer whose callback only runs while generation is current.
func (e *Engine) after(generation uint64, d time.Duration, fn func(*session.Session)) clock.Timer {
	return e.clock.AfterFunc(d, func() {
		e.post(func() {
			s := e.current
			if s == nil || s.Generation != generation {
				e.logger.Debug("stale session timer ignored", "generation", generation)
				return
			}
			fn(s)
		})
	})
}

func (e *Engine) beginSession(origin session.Origin) {
	e.pendingListen = false
	e.generation++
	s := session.New(e.generation, origin, e.clock.Now())
	e.current = s
	e.startSpan(s)

	timing := e.settings.Timing
	s.Timeout = e.after(s.Generation, timing.SessionTimeout, func(s *session.Session) {
		e.logger.Warn("session timed out", "session", s.ID, "state", string(s.State))
		e.requestTeardown(s, "timeout")
	})

	if err := e.wake.Stop(); err != nil {
		e.logger.Debug("wake stop failed", "error", err)
	}
	e.resetRecognizer()

	e.logger.Info("session starting", "session", s.ID, "origin", string(origin), "generation", s.Generation)
	e.runPlan(s, session.StartPlan(origin, timing), e.startStep)
}

// resetRecognizer clears whatever a previous session may have left running.
func (e *Engine) resetRecognizer() {
	e.callRecognizer("cancel", e.rec.Cancel)
	e.callRecognizer("stop", e.rec.Stop)
	e.callRecognizer("destroy", e.rec.Destroy)
}

func (e *Engine) callRecognizer(name string, fn func() error) {
	if err := fn(); err != nil {
		e.logger.Debug("recognizer call failed", "call", name, "error", err)
	}
}

// runPlan schedules steps one after another on the clock.
func (e *Engine) runPlan(s *session.Session, steps []session.Step, do func(*session.Session, session.Action)) {
	if len(steps) == 0 {
		return
	}
	step, rest := steps[0], steps[1:]
	e.plan = e.after(s.Generation, step.After, func(s *session.Session) {
		e.plan = nil
		do(s, step.Action)
		if e.plan != nil || e.current != s {
			return
		}
		e.runPlan(s, rest, do)
	})
}

func (e *Engine) stopPlan() {
	if e.plan != nil {
		e.plan.Stop()
		e.plan = nil
	}
}

func (e *Engine) startStep(s *session.Session, action session.Action) {
	if s.CleanupRequested {
		return
	}
	switch action {
	case session.ActionCue:
		if !s.CuePlayed {
			s.CuePlayed = true
			e.ind.CueListen(e.ctx)
		}
	case session.ActionStart:
		e.detach = e.rec.Attach(e.listenerFor(s.Generation))
		if err := e.rec.Start(e.ctx, e.settings.Locale, e.settings.Options); err != nil {
			e.recordError(err)
			if recognizer.IsUnavailable(err) {
				e.logger.Error("speech recognizer unavailable", "error", err)
				e.ind.Alert(e.ctx, "Speech recognition unavailable", err.Error())
			} else {
				e.logger.Error("speech recognizer failed to start", "session", s.ID, "error", err)
			}
			e.requestTeardown(s, "start failed")
			return
		}
		e.addEvent("recognizer started")
	}
}

func (e *Engine) listenerFor(generation uint64) recognizer.Listener {
	return recognizer.Listener{
		OnStart: func() {
			e.signal(generation, "start", func(s *session.Session) session.Outcome {
				return s.SpeechStarted()
			})
		},
		OnPartialResults: func(values []string) {
			values = append([]string(nil), values...)
			e.signal(generation, "partial", func(s *session.Session) session.Outcome {
				return s.Partial(values, e.bus.IsAwaitingAnswer(), e.settings.Matcher)
			})
		},
		OnResults: func(values []string) {
			values = append([]string(nil), values...)
			e.signal(generation, "final", func(s *session.Session) session.Outcome {
				return s.Final(values)
			})
		},
		OnError: func(err recognizer.Error) {
			e.signal(generation, "error", func(s *session.Session) session.Outcome {
				benign := e.settings.Benign.Match(err)
				if benign {
					e.logger.Debug("benign recognizer error ignored", "session", s.ID, "code", err.Code, "message", err.Message)
				} else {
					e.logger.Warn("recognizer error", "session", s.ID, "code", err.Code, "message", err.Message)
					e.recordError(err)
				}
				return s.Failed(benign)
			})
		},
		OnEnd: func() {
			e.signal(generation, "end", func(s *session.Session) session.Outcome {
				return s.End()
			})
		},
	}
}

// signal applies one recognizer callback to the session it was attached for.
func (e *Engine) signal(generation uint64, name string, handle func(*session.Session) session.Outcome) {
	e.post(func() {
		s := e.current
		if s == nil || s.Generation != generation {
			e.logger.Debug("stale recognizer signal dropped", "signal", name, "generation", generation)
			return
		}
		e.apply(s, handle(s))
	})
}

func (e *Engine) apply(s *session.Session, out session.Outcome) {
	if out.EnteredListening {
		e.addEvent("listening")
		e.bus.EmitListening(true)
		e.ind.ShowListening(e.ctx)
	}
	if out.Display != "" {
		e.notePartial(out.Display)
	}
	if out.Emit != "" {
		e.addEvent("result")
		e.logger.Info("result", "session", s.ID, "text", out.Emit)
		e.lastResult = out.Emit
		e.resultShowing = true
		e.ind.ShowResult(e.ctx, out.Emit)
		e.bus.EmitResult(out.Emit)
	}
	if out.ArmFallback && e.current == s && !s.CleanupRequested {
		s.Fallback = e.after(s.Generation, e.settings.Timing.EndFallback, func(s *session.Session) {
			e.requestTeardown(s, "end fallback")
		})
	}
	if out.Teardown {
		e.requestTeardown(s, out.Reason)
	}
}

// requestTeardown starts the staged release of s. Only the first request
// for a session does anything.
func (e *Engine) requestTeardown(s *session.Session, reason string) {
	if !s.RequestCleanup() {
		e.logger.Debug("teardown already requested", "session", s.ID, "reason", reason)
		return
	}
	s.StopTimers()
	e.stopPlan()
	e.detachListener()
	e.addEvent("teardown: " + reason)
	e.logger.Info("session tearing down", "session", s.ID, "reason", reason, "natural_end", s.SawNaturalEnd)

	e.bus.EmitListening(false)
	if !e.resultShowing {
		e.ind.Hide(e.ctx)
	}

	e.runPlan(s, e.settings.Policy.TeardownPlan(s.SawNaturalEnd, e.settings.Timing), e.teardownStep)
}

func (e *Engine) detachListener() {
	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}

func (e *Engine) teardownStep(s *session.Session, action session.Action) {
	switch action {
	case session.ActionCancel:
		e.callRecognizer("cancel", e.rec.Cancel)
	case session.ActionStop:
		e.callRecognizer("stop", e.rec.Stop)
	case session.ActionDestroy:
		e.callRecognizer("destroy", e.rec.Destroy)
	case session.ActionComplete:
		e.completeSession(s, "torn down")
		e.afterSession()
	}
}

func (e *Engine) completeSession(s *session.Session, reason string) {
	s.Complete()
	e.endSpan(s, reason)
	if e.current == s {
		e.current = nil
	}
	e.logger.Info("session complete", "session", s.ID, "emitted", s.EmittedResult)
}

// afterSession decides who gets the microphone once a session is gone.
func (e *Engine) afterSession() {
	if e.closed {
		return
	}
	if e.speaking.IsSpeaking() {
		e.wake.Defer()
		e.logger.Debug("wake resume deferred until output ends")
		return
	}
	if e.pendingListen {
		e.beginSession(session.OriginProgrammatic)
		return
	}
	e.resumeWake()
}

func (e *Engine) resumeWake() {
	if e.closed || e.current != nil {
		return
	}
	if e.speaking.IsSpeaking() {
		e.wake.Defer()
		return
	}
	if err := e.wake.Start(e.ctx); err != nil {
		e.logger.Error("wake listener unavailable", "error", err)
		e.ind.Alert(e.ctx, "Wake listener unavailable", err.Error())
	}
}

func (e *Engine) onSpeakStart() {
	e.post(func() {
		if !e.speaking.Started(e.resultShowing) {
			return
		}
		e.logger.Debug("speech output started")
		e.bus.EmitSpeaking(true)

		if s := e.current; s != nil {
			e.requestTeardown(s, "speech output started")
		}
		if e.wake.IsActive() {
			if err := e.wake.Stop(); err != nil {
				e.logger.Debug("wake stop failed", "error", err)
			}
			e.wake.Defer()
		}
	})
}

func (e *Engine) onSpeakEnd() {
	e.post(func() {
		if !e.speaking.Ended() {
			return
		}
		e.stopSpeakTimer()
		e.logger.Debug("speech output ended")
		e.bus.EmitSpeaking(false)

		if e.closed || e.current != nil {
			return
		}
		if e.pendingListen {
			e.beginSession(session.OriginProgrammatic)
			return
		}
		if e.wake.Deferred() {
			e.resumeWake()
		}
	})
}

// armSpeakTimer stops output that has not finished within the speak guard.
func (e *Engine) armSpeakTimer(done <-chan struct{}) {
	e.stopSpeakTimer()
	limit := e.settings.Timing.SpeakGuard
	if limit <= 0 {
		return
	}
	e.speakTimer = e.clock.AfterFunc(limit, func() {
		select {
		case <-done:
			return
		default:
		}
		e.logger.Warn("speech output exceeded guard; stopping", "limit", limit.String())
		if err := e.out.Stop(); err != nil {
			e.logger.Debug("speech output stop failed", "error", err)
		}
	})
}

func (e *Engine) stopSpeakTimer() {
	if e.speakTimer != nil {
		e.speakTimer.Stop()
		e.speakTimer = nil
	}
}

// clearResult runs from the speak guard when the shown result should go.
func (e *Engine) clearResult() {
	e.post(func() {
		if !e.resultShowing {
			return
		}
		e.resultShowing = false
		if e.current == nil || e.current.CleanupRequested {
			e.ind.Hide(e.ctx)
		}
	})
}

func (e *Engine) checkInvariants() {
	s := e.current
	if s == nil || !fsm.HoldsMicrophone(s.State) {
		return
	}
	if e.wake.IsActive() {
		e.logger.Error("wake listener and session both hold the microphone", "session", s.ID)
	}
	if e.speaking.IsSpeaking() && !s.CleanupRequested {
		e.logger.Error("session running while speech output is audible", "session", s.ID)
	}
}
