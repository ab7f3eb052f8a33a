package gateway

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests []ipc.Request
	events   []ipc.Response
}

func (b *fakeBackend) Handle(_ context.Context, req ipc.Request) ipc.Response {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	switch req.Command {
	case ipc.CommandCancel:
		return ipc.Response{OK: false, State: "idle", Error: "no active session"}
	default:
		return ipc.Response{
			OK:      true,
			State:   "idle",
			Message: req.Command,
			Details: map[string]string{"text": req.Text},
		}
	}
}

func (b *fakeBackend) Stream(ctx context.Context, _ ipc.Request, send func(ipc.Response) error) error {
	for _, ev := range b.events {
		if err := send(ev); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

func (b *fakeBackend) last() ipc.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func startGateway(t *testing.T, backend Backend) *Client {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, listener, backend, nil) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	client, err := Dial(context.Background(), "passthrough:///bufnet", time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUnaryCommandsReachBackend(t *testing.T) {
	backend := &fakeBackend{}
	client := startGateway(t, backend)
	ctx := context.Background()

	resp, err := client.Status(ctx)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Equal(t, ipc.CommandStatus, resp.Message)

	_, err = client.Listen(ctx)
	require.NoError(t, err)
	require.Equal(t, ipc.CommandListen, backend.last().Command)

	_, err = client.Wake(ctx)
	require.NoError(t, err)
	require.Equal(t, ipc.CommandWake, backend.last().Command)

	resp, err = client.Speak(ctx, "left lane")
	require.NoError(t, err)
	require.Equal(t, "left lane", resp.Details["text"])
	require.Equal(t, ipc.CommandSpeak, backend.last().Command)

	_, err = client.SetAwaiting(ctx, true)
	require.NoError(t, err)
	req := backend.last()
	require.Equal(t, ipc.CommandAwaiting, req.Command)
	require.NotNil(t, req.Value)
	require.True(t, *req.Value)

	_, err = client.StopSpeaking(ctx)
	require.NoError(t, err)
	require.Equal(t, ipc.CommandStop, backend.last().Command)
}

func TestRejectedCommandMapsToFailedPrecondition(t *testing.T) {
	client := startGateway(t, &fakeBackend{})

	resp, err := client.Cancel(context.Background())
	require.Error(t, err)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
	require.False(t, resp.OK)
	require.Equal(t, "no active session", resp.Error)
}

func TestEventsStream(t *testing.T) {
	backend := &fakeBackend{events: []ipc.Response{
		{OK: true, Message: "wake"},
		{OK: true, Message: "result", Details: map[string]string{"text": "i spy"}},
	}}
	client := startGateway(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []ipc.Response
	err := client.Events(ctx, func(resp ipc.Response) error {
		got = append(got, resp)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 2)
	require.Equal(t, "wake", got[0].Message)
	require.Equal(t, "i spy", got[1].Details["text"])
}

func TestDialRejectsEmptyAddress(t *testing.T) {
	_, err := Dial(context.Background(), "  ", time.Second)
	require.ErrorContains(t, err, "gateway address is empty")
}

func TestResponseCodecRoundTrip(t *testing.T) {
	in := ipc.Response{OK: true, State: "listening", Message: "status", Details: map[string]string{"speaking": "false"}}
	msg, err := encodeResponse(in)
	require.NoError(t, err)
	require.Equal(t, in, decodeResponse(msg))
}
