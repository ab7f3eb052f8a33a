package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

func dial(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, "unix", path)
}

// readResponse decodes one JSON line; what names the payload in errors.
func readResponse(reader *bufio.Reader, what string) (Response, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read %s: %w", what, err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode %s: %w", what, err)
	}
	return resp, nil
}

// Send performs one request/response exchange. timeout bounds both the dial
// and the whole exchange.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	conn, err := dial(ctx, path, timeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	return readResponse(bufio.NewReader(conn), "response")
}

// Probe reports whether a live engine answers on path. A missing socket or
// refused connection means nobody is home; any other failure is returned.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	switch {
	case err == nil:
		return true, nil
	case isSocketMissing(err), isConnectionRefused(err):
		return false, nil
	default:
		return false, fmt.Errorf("probe socket: %w", err)
	}
}

func isSocketMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// Subscribe sends req and calls fn for every response line until the server
// closes the stream, ctx ends, or fn returns an error.
func Subscribe(ctx context.Context, path string, req Request, dialTimeout time.Duration, fn func(Response) error) error {
	conn, err := dial(ctx, path, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	reader := bufio.NewReader(conn)
	for {
		resp, err := readResponse(reader, "event")
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
		if err := fn(resp); err != nil {
			return err
		}
	}
}
