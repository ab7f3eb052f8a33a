package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/bus"
	"github.com/prestond28/road-trip-game-box/internal/ipc"
)

// Handle serves IPC commands against the running engine.
func (e *Engine) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return e.respond("status")
	case ipc.CommandListen:
		e.RequestProgrammaticListen()
		return e.respond("listen requested")
	case ipc.CommandWake:
		if !e.TriggerWake() {
			return e.fail("wake listener is not running")
		}
		return e.respond("wake triggered")
	case ipc.CommandSpeak:
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return e.fail("speak requires text")
		}
		if err := e.Speak(ctx, text); err != nil {
			return e.fail(err.Error())
		}
		return e.respond("speaking")
	case ipc.CommandAwaiting:
		if req.Value == nil {
			return e.fail("awaiting requires a value")
		}
		e.bus.SetAwaitingAnswer(*req.Value)
		return e.respond("awaiting answer " + strconv.FormatBool(*req.Value))
	case ipc.CommandStop:
		if err := e.StopSpeaking(); err != nil {
			return e.fail(err.Error())
		}
		return e.respond("speech stopped")
	case ipc.CommandCancel:
		if !e.CancelSession("cancelled by request") {
			return e.fail("no active session")
		}
		return e.respond("session cancelled")
	default:
		return e.fail(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

// Stream forwards bus events to an IPC subscriber until ctx ends.
func (e *Engine) Stream(ctx context.Context, _ ipc.Request, send func(ipc.Response) error) error {
	events := make(chan bus.Event, 64)
	forward := func(ev bus.Event) {
		select {
		case events <- ev:
		default:
			e.logger.Warn("event subscriber too slow; dropping event", "kind", string(ev.Kind))
		}
	}

	kinds := []bus.Kind{bus.KindWake, bus.KindListening, bus.KindResult, bus.KindSpeaking, bus.KindRequestListen}
	for _, kind := range kinds {
		unsubscribe := e.bus.Subscribe(kind, forward)
		defer unsubscribe()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		case ev := <-events:
			if err := send(EventResponse(ev)); err != nil {
				return err
			}
		}
	}
}

// EventResponse renders a bus event as a stream line.
func EventResponse(ev bus.Event) ipc.Response {
	details := map[string]string{}
	switch ev.Kind {
	case bus.KindListening:
		details["listening"] = strconv.FormatBool(ev.Listening)
	case bus.KindSpeaking:
		details["speaking"] = strconv.FormatBool(ev.Speaking)
	case bus.KindResult, bus.KindSpeakRequest:
		details["text"] = ev.Text
	}
	if !ev.At.IsZero() {
		details["at"] = ev.At.Format(time.RFC3339Nano)
	}
	return ipc.Response{OK: true, Message: string(ev.Kind), Details: details}
}

func (e *Engine) respond(message string) ipc.Response {
	st := e.Status()
	return ipc.Response{OK: true, State: string(st.State), Message: message, Details: st.Details()}
}

func (e *Engine) fail(message string) ipc.Response {
	return ipc.Response{OK: false, State: string(e.Status().State), Error: message}
}
