package control

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// PollInterval is how often the listener checks for shutdown.
const PollInterval = 50 * time.Millisecond

var ErrServerClosed = errors.New("control: server closed")

// Response is the outcome of a request as handed to Respond.
type Response struct {
	Payload []byte
	Err     error
}

// InFlight is a request waiting for its response. Requests synthesized by
// the server, such as the shutdown on a termination signal, have nobody
// waiting and Respond does nothing.
type InFlight struct {
	Request Request

	reply  chan<- Response
	gone   <-chan struct{}
	logger *slog.Logger
}

// Respond sends the response to the requester. It never blocks; a requester
// that has hung up is logged and ignored.
func (f *InFlight) Respond(payload []byte, err error) {
	if f.reply == nil {
		return
	}
	select {
	case <-f.gone:
		f.logger.Warn("requester hung up before response could be sent", "op", f.Request.Op)
		return
	default:
	}
	select {
	case f.reply <- Response{Payload: payload, Err: err}:
	default:
		f.logger.Warn("request already answered", "op", f.Request.Op)
	}
}

type ServerOption func(*Server)

// WithSignals makes the server turn SIGINT and SIGTERM into a Shutdown
// request.
func WithSignals(enabled bool) ServerOption {
	return func(s *Server) {
		s.handleSignals = enabled
	}
}

// WithMaxPayload sets the cumulative payload ceiling of a request.
func WithMaxPayload(n uint64) ServerOption {
	return func(s *Server) {
		s.maxPayload = n
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server accepts control connections on a Unix socket and queues their
// requests for a single consumer calling Wait.
type Server struct {
	path          string
	listener      *net.UnixListener
	logger        *slog.Logger
	maxPayload    uint64
	handleSignals bool
	signals       chan os.Signal
	exit          func(code int)

	queue        chan *InFlight
	done         chan struct{}
	listenerDone chan struct{}
	shutdown     atomic.Bool
	shutdownOnce sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// Start binds the socket at path and starts accepting connections. The
// socket file is removed by Shutdown.
func Start(path string, opts ...ServerOption) (*Server, error) {
	s := &Server{
		path:         path,
		logger:       slog.Default(),
		maxPayload:   MaxPayload,
		exit:         os.Exit,
		queue:        make(chan *InFlight),
		done:         make(chan struct{}),
		listenerDone: make(chan struct{}),
		conns:        make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	listener.SetUnlinkOnClose(false)
	s.listener = listener

	if s.handleSignals {
		s.signals = make(chan os.Signal, 1)
		signal.Notify(s.signals, os.Interrupt, syscall.SIGTERM)
		go s.signalLoop()
	}

	go s.listen()
	return s, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Wait returns the next request. It returns ErrServerClosed once the server
// is shut down.
func (s *Server) Wait(ctx context.Context) (*InFlight, error) {
	select {
	case f := <-s.queue:
		return f, nil
	case <-s.done:
		return nil, ErrServerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the listener, unblocks connections still reading their
// request, waits for the connection handlers and removes the socket file.
// It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.shutdown.Store(true)
		close(s.done)
		<-s.listenerDone

		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("failed to close listener", "error", err)
		}
		if s.signals != nil {
			signal.Stop(s.signals)
		}

		s.mu.Lock()
		for conn := range s.conns {
			conn.SetReadDeadline(time.Now())
		}
		s.mu.Unlock()
		s.wg.Wait()

		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("failed to clean up socket file", "path", s.path, "error", err)
		}
	})
}

func (s *Server) listen() {
	defer close(s.listenerDone)

	for !s.shutdown.Load() {
		s.listener.SetDeadline(time.Now().Add(PollInterval))
		conn, err := s.listener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.logger.Error("listener error", "error", err)
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			if err := s.serve(conn); err != nil {
				s.logger.Error("request handler error", "error", err)
			}
		}()
	}
}

func (s *Server) forget(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) serve(conn net.Conn) error {
	req, err := ReadRequest(conn, s.maxPayload)
	switch {
	case errors.Is(err, ErrBadMagic):
		s.logger.Debug("request has bad magic, dropping")
		return nil
	case errors.Is(err, ErrBadOp), errors.Is(err, ErrBadArity):
		if werr := WriteResponse(conn, nil, err); werr != nil {
			return werr
		}
		return err
	case err != nil:
		return err
	}

	reply := make(chan Response, 1)
	gone := make(chan struct{})
	defer close(gone)

	if !s.submit(&InFlight{Request: req, reply: reply, gone: gone, logger: s.logger}) {
		return ErrServerClosed
	}

	var resp Response
	select {
	case resp = <-reply:
	case <-s.done:
		// A response sent before shutdown is still delivered.
		select {
		case resp = <-reply:
		default:
			return ErrServerClosed
		}
	}

	return WriteResponse(conn, resp.Payload, resp.Err)
}

// submit queues f for the consumer. It fails once the server is shut down.
func (s *Server) submit(f *InFlight) bool {
	select {
	case s.queue <- f:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) signalLoop() {
	for {
		select {
		case sig := <-s.signals:
			s.logger.Info("termination signal, requesting shutdown", "signal", sig.String())
			s.onSignal()
		case <-s.done:
			return
		}
	}
}

func (s *Server) onSignal() {
	if !s.submit(&InFlight{Request: Request{Op: OpShutdown}, logger: s.logger}) {
		s.logger.Error("termination handler could not send shutdown request, killing host")
		s.exit(1)
	}
}
