// Package gateway exposes the engine's control surface and event stream
// over gRPC for collaborators that cannot reach the unix socket.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"github.com/prestond28/road-trip-game-box/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "gamebox.v1.Arbiter"

// Backend executes commands. The engine satisfies it.
type Backend interface {
	ipc.Handler
	ipc.Streamer
}

// Server adapts a Backend to the Arbiter service.
type Server struct {
	backend Backend
	logger  *slog.Logger
}

func NewServer(backend Backend, logger *slog.Logger) *Server {
	return &Server{backend: backend, logger: logging.OrDiscard(logger)}
}

// Register installs the Arbiter service on s.
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

// Serve listens on address and serves until ctx is cancelled.
func Serve(ctx context.Context, address string, backend Backend, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", address, err)
	}
	return ServeListener(ctx, listener, backend, logger)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func ServeListener(ctx context.Context, listener net.Listener, backend Backend, logger *slog.Logger) error {
	logger = logging.OrDiscard(logger)
	s := grpc.NewServer()
	Register(s, NewServer(backend, logger))

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	logger.Info("gateway listening", "address", listener.Addr().String())
	if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gateway: %w", err)
	}
	return nil
}

func (s *Server) call(ctx context.Context, req ipc.Request) (*structpb.Struct, error) {
	resp := s.backend.Handle(ctx, req)
	if !resp.OK {
		s.logger.Debug("gateway command rejected", "command", req.Command, "error", resp.Error)
		return nil, status.Error(codes.FailedPrecondition, resp.Error)
	}
	return encodeResponse(resp)
}

func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.call(ctx, ipc.Request{Command: ipc.CommandStatus})
}

func (s *Server) Listen(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.call(ctx, ipc.Request{Command: ipc.CommandListen})
}

func (s *Server) Wake(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.call(ctx, ipc.Request{Command: ipc.CommandWake})
}

func (s *Server) Speak(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.call(ctx, ipc.Request{Command: ipc.CommandSpeak, Text: in.GetValue()})
}

func (s *Server) SetAwaiting(ctx context.Context, in *wrapperspb.BoolValue) (*structpb.Struct, error) {
	value := in.GetValue()
	return s.call(ctx, ipc.Request{Command: ipc.CommandAwaiting, Value: &value})
}

func (s *Server) StopSpeaking(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.call(ctx, ipc.Request{Command: ipc.CommandStop})
}

func (s *Server) Cancel(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.call(ctx, ipc.Request{Command: ipc.CommandCancel})
}

// Events streams bus events until the client goes away.
func (s *Server) Events(_ *emptypb.Empty, stream grpc.ServerStream) error {
	return s.backend.Stream(stream.Context(), ipc.Request{Command: ipc.CommandEvents}, func(resp ipc.Response) error {
		msg, err := encodeResponse(resp)
		if err != nil {
			return err
		}
		return stream.SendMsg(msg)
	})
}

type unaryMethod func(*Server, context.Context, func(any) error) (any, error)

func emptyUnary(call func(*Server, context.Context, *emptypb.Empty) (*structpb.Struct, error)) unaryMethod {
	return func(s *Server, ctx context.Context, dec func(any) error) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		return call(s, ctx, in)
	}
}

func unaryHandler(name string, method unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			s := srv.(*Server)
			if interceptor == nil {
				return method(s, ctx, dec)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
				return method(s, ctx, dec)
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Status", emptyUnary((*Server).Status)),
		unaryHandler("Listen", emptyUnary((*Server).Listen)),
		unaryHandler("Wake", emptyUnary((*Server).Wake)),
		unaryHandler("StopSpeaking", emptyUnary((*Server).StopSpeaking)),
		unaryHandler("Cancel", emptyUnary((*Server).Cancel)),
		unaryHandler("Speak", func(s *Server, ctx context.Context, dec func(any) error) (any, error) {
			in := new(wrapperspb.StringValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			return s.Speak(ctx, in)
		}),
		unaryHandler("SetAwaiting", func(s *Server, ctx context.Context, dec func(any) error) (any, error) {
			in := new(wrapperspb.BoolValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			return s.SetAwaiting(ctx, in)
		}),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Events",
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(emptypb.Empty)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return srv.(*Server).Events(in, stream)
		},
	}},
	Metadata: "gamebox/v1/arbiter",
}
