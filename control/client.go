package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

var ErrBadVersion = errors.New("control: version response not UTF-8")

// Client talks to a host control server. Every call uses its own connection.
type Client struct {
	path   string
	dialer net.Dialer
}

func NewClient(path string) *Client {
	return &Client{path: path}
}

// Version returns the host's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.roundTrip(ctx, OpVersion)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(resp) {
		return "", ErrBadVersion
	}
	return string(resp), nil
}

// Shutdown asks the host to stop accepting requests and exit once its
// modules have finished.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := c.roundTrip(ctx, OpShutdown)
	return err
}

// Run asks the host to start binary as a new module.
func (c *Client) Run(ctx context.Context, binary []byte) error {
	_, err := c.roundTrip(ctx, OpRun, binary)
	return err
}

func (c *Client) roundTrip(ctx context.Context, op Op, payloads ...[]byte) ([]byte, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := WriteRequest(conn, op, payloads...); err != nil {
		return nil, fmt.Errorf("send %s: %w", op, err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}

	return ReadResponse(conn)
}
