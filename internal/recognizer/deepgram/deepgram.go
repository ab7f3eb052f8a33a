// Package deepgram streams microphone audio to the Deepgram live
// transcription websocket and reports recognizer signals.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/prestond28/road-trip-game-box/internal/audio"
	"github.com/prestond28/road-trip-game-box/internal/logging"
	"github.com/prestond28/road-trip-game-box/internal/recognizer"
)

const DefaultURL = "wss://api.deepgram.com/v1/listen"

// Error codes reported through Listener.OnError.
const (
	CodeNetwork = "network"
	CodeClosed  = "closed"
)

var (
	ErrMissingAPIKey  = errors.New("deepgram api key is empty")
	ErrAlreadyRunning = errors.New("recognition already running")
)

// Config selects the endpoint and stream parameters. Zero Endpointing or
// UtteranceEnd derive from the per-attempt recognizer options.
type Config struct {
	URL          string
	APIKey       string
	Model        string
	Endpointing  time.Duration
	UtteranceEnd time.Duration
	DialTimeout  time.Duration
	Capture      audio.CaptureFunc
	Logger       *slog.Logger
}

// Client is a recognizer.Recognizer backed by one websocket per attempt.
type Client struct {
	recognizer.Listeners

	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	stream *stream
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Capture == nil {
		return nil, errors.New("deepgram recognizer has no audio capture")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "nova-3"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	logger = logging.OrDiscard(logger)
	return &Client{cfg: cfg, logger: logger}, nil
}

// Start dials the websocket, opens the microphone, and reports OnStart once
// audio is flowing.
func (c *Client) Start(ctx context.Context, locale string, opts recognizer.Options) error {
	c.mu.Lock()
	if c.stream != nil {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}

	endpoint, err := listenURL(c.cfg, locale, opts)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, http.Header{"Authorization": {"Token " + c.cfg.APIKey}})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("dial deepgram: %w", err)
	}

	source, err := c.cfg.Capture(ctx)
	if err != nil {
		_ = conn.Close()
		c.mu.Unlock()
		return fmt.Errorf("open microphone: %w", err)
	}

	s := &stream{
		client:     c,
		conn:       conn,
		source:     source,
		maxResults: opts.MaxResults,
		partials:   opts.PartialResults,
	}
	c.stream = s
	go s.pump()
	go s.read()
	c.mu.Unlock()

	c.logger.Debug("deepgram stream opened", "locale", locale, "model", c.cfg.Model)
	c.EmitStart()
	return nil
}

// Stop ends audio and asks the service to flush final results. The stream
// stays open until results arrive or Cancel is called.
func (c *Client) Stop() error {
	c.mu.Lock()
	s := c.stream
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.finish()
}

// Cancel drops the stream without waiting for results.
func (c *Client) Cancel() error {
	c.mu.Lock()
	s := c.stream
	c.stream = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.close()
}

// Destroy releases everything Start acquired. The websocket backend holds
// no state beyond the stream, so it is the same as Cancel.
func (c *Client) Destroy() error {
	return c.Cancel()
}

type stream struct {
	client *Client
	conn   *websocket.Conn
	source audio.Source

	maxResults int
	partials   bool

	writeMu   sync.Mutex
	stopping  atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once

	// Owned by the read goroutine.
	segments []string
	lastAlts []string
	ended    bool
}

func (s *stream) pump() {
	for chunk := range s.source.Chunks() {
		s.writeMu.Lock()
		err := s.conn.WriteMessage(websocket.BinaryMessage, chunk)
		s.writeMu.Unlock()
		if err != nil {
			if !s.closing.Load() {
				s.client.logger.Debug("deepgram audio write failed", "error", err)
			}
			_ = s.source.Stop()
			return
		}
	}
}

func (s *stream) finish() error {
	if !s.stopping.CompareAndSwap(false, true) {
		return nil
	}
	_ = s.source.Stop()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("send close stream: %w", err)
	}
	return nil
}

func (s *stream) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		_ = s.source.Stop()
		err = s.conn.Close()
	})
	return err
}

func (s *stream) read() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.readFailed(err)
			return
		}
		s.handle(msg)
	}
}

// live reports whether this stream may still signal the attached listener.
// A cancelled stream must never reach a listener attached for a later attempt.
func (s *stream) live() bool {
	if s.closing.Load() {
		return false
	}
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	return s.client.stream == s
}

func (s *stream) readFailed(err error) {
	if !s.live() {
		return
	}
	if s.stopping.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		s.end()
		return
	}

	code := CodeNetwork
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		code = CodeClosed
	}
	s.client.logger.Debug("deepgram stream failed", "error", err)
	s.client.EmitError(recognizer.Error{Code: code, Message: err.Error()})
}

func (s *stream) handle(msg []byte) {
	if !s.live() {
		return
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		s.client.logger.Debug("deepgram message decode failed", "error", err)
		return
	}

	switch api.TypeResponse(envelope.Type) {
	case api.TypeMessageResponse:
		var resp api.MessageResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			s.client.logger.Debug("deepgram results decode failed", "error", err)
			return
		}
		s.results(resp)

	case api.TypeUtteranceEndResponse:
		var resp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return
		}
		if len(s.segments) > 0 {
			s.end()
		}

	case api.TypeSpeechStartedResponse:
		var resp api.SpeechStartedResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return
		}
		s.client.logger.Debug("deepgram speech started")
	}
}

func (s *stream) results(resp api.MessageResponse) {
	if s.ended {
		return
	}

	alts := make([]string, 0, len(resp.Channel.Alternatives))
	for _, alt := range resp.Channel.Alternatives {
		alts = append(alts, cleanSegment(alt.Transcript))
	}
	if len(alts) == 0 {
		return
	}

	if !resp.IsFinal {
		if s.partials && alts[0] != "" {
			s.client.EmitPartial(s.candidates(s.segments, alts))
		}
		return
	}

	if alts[0] != "" {
		s.lastAlts = alts
		s.segments = appendSegment(s.segments, alts[0])
		if s.partials {
			s.client.EmitPartial(s.candidates(s.segments[:len(s.segments)-1], alts))
		}
	}
	if resp.SpeechFinal && len(s.segments) > 0 {
		s.end()
	}
}

// end reports the natural end of speech followed by the final results.
func (s *stream) end() {
	if s.ended {
		return
	}
	s.ended = true
	s.client.EmitEnd()

	var prefix []string
	if len(s.segments) > 0 {
		prefix = s.segments[:len(s.segments)-1]
	}
	s.client.EmitResults(s.candidates(prefix, s.lastAlts))
}

// candidates prefixes committed speech onto each alternative of the latest
// segment, primary first.
func (s *stream) candidates(committed []string, alts []string) []string {
	limit := len(alts)
	if s.maxResults > 0 && limit > s.maxResults {
		limit = s.maxResults
	}
	out := make([]string, 0, limit)
	for _, alt := range alts[:limit] {
		out = append(out, cleanSegment(strings.Join(append(append([]string(nil), committed...), alt), " ")))
	}
	return out
}

func listenURL(cfg Config, locale string, opts recognizer.Options) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse deepgram url: %w", err)
	}
	if locale = strings.TrimSpace(locale); locale == "" {
		locale = "en-US"
	}

	endpointing := cfg.Endpointing
	if endpointing <= 0 {
		endpointing = opts.CompleteSilence
	}
	utteranceEnd := cfg.UtteranceEnd
	if utteranceEnd <= 0 {
		utteranceEnd = opts.PossiblyCompleteSilence
	}

	q := u.Query()
	q.Set("encoding", audio.Encoding)
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", strconv.Itoa(audio.Channels))
	q.Set("model", cfg.Model)
	q.Set("language", locale)
	q.Set("interim_results", strconv.FormatBool(opts.PartialResults || utteranceEnd > 0))
	q.Set("vad_events", "true")
	if endpointing > 0 {
		q.Set("endpointing", strconv.FormatInt(endpointing.Milliseconds(), 10))
	}
	if utteranceEnd > 0 {
		q.Set("utterance_end_ms", strconv.FormatInt(utteranceEnd.Milliseconds(), 10))
	}
	if opts.MaxResults > 1 {
		q.Set("alternatives", strconv.Itoa(opts.MaxResults))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
