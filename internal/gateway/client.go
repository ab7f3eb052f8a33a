package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls a remote Arbiter service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to address and waits until the channel is ready.
func Dial(ctx context.Context, address string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("gateway address is empty")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %q: %w", address, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for gateway readiness: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in proto.Message) (ipc.Response, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out); err != nil {
		if st, ok := status.FromError(err); ok {
			return ipc.Response{OK: false, Error: st.Message()}, err
		}
		return ipc.Response{}, err
	}
	return decodeResponse(out), nil
}

func (c *Client) Status(ctx context.Context) (ipc.Response, error) {
	return c.invoke(ctx, "Status", &emptypb.Empty{})
}

func (c *Client) Listen(ctx context.Context) (ipc.Response, error) {
	return c.invoke(ctx, "Listen", &emptypb.Empty{})
}

func (c *Client) Wake(ctx context.Context) (ipc.Response, error) {
	return c.invoke(ctx, "Wake", &emptypb.Empty{})
}

func (c *Client) Speak(ctx context.Context, text string) (ipc.Response, error) {
	return c.invoke(ctx, "Speak", wrapperspb.String(text))
}

func (c *Client) SetAwaiting(ctx context.Context, awaiting bool) (ipc.Response, error) {
	return c.invoke(ctx, "SetAwaiting", wrapperspb.Bool(awaiting))
}

func (c *Client) StopSpeaking(ctx context.Context) (ipc.Response, error) {
	return c.invoke(ctx, "StopSpeaking", &emptypb.Empty{})
}

func (c *Client) Cancel(ctx context.Context) (ipc.Response, error) {
	return c.invoke(ctx, "Cancel", &emptypb.Empty{})
}

// Events calls fn for every streamed event until ctx ends or the server
// closes the stream.
func (c *Client) Events(ctx context.Context, fn func(ipc.Response) error) error {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/Events")
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return fmt.Errorf("send event subscription: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("close event subscription: %w", err)
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive event: %w", err)
		}
		if err := fn(decodeResponse(msg)); err != nil {
			return err
		}
	}
}

// waitForReady blocks until the connection is Ready or ctx expires.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
