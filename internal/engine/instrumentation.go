package engine

import (
	"github.com/prestond28/road-trip-game-box/internal/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/prestond28/road-trip-game-box/internal/engine"

func defaultTracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// startSpan opens one span per recognition session. Session events are
// recorded on it until the session completes.
func (e *Engine) startSpan(s *session.Session) {
	_, e.span = e.tracer.Start(e.ctx, "recognition session",
		trace.WithAttributes(
			attribute.String("session.id", s.ID),
			attribute.String("session.origin", string(s.Origin)),
			attribute.Int64("session.generation", int64(s.Generation)),
		),
	)
}

func (e *Engine) addEvent(name string) {
	if e.span != nil {
		e.span.AddEvent(name)
	}
}

// notePartial records the latest recognized text on the session span.
func (e *Engine) notePartial(text string) {
	e.logger.Debug("recognized text", "text", text)
	if e.span != nil {
		e.span.AddEvent("partial", trace.WithAttributes(attribute.String("text", text)))
	}
}

func (e *Engine) recordError(err error) {
	if e.span != nil {
		e.span.RecordError(err)
		e.span.SetStatus(codes.Error, err.Error())
	}
}

func (e *Engine) endSpan(s *session.Session, reason string) {
	if e.span == nil {
		return
	}
	e.span.SetAttributes(
		attribute.Bool("session.emitted_result", s.EmittedResult),
		attribute.Bool("session.natural_end", s.SawNaturalEnd),
		attribute.String("session.end_reason", reason),
	)
	e.span.End()
	e.span = nil
}
