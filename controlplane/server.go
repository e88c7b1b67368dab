package controlplane

import (
	"errors"
	"net"
	"os"

	"github.com/justapithecus/chunkstream/log"
	"github.com/justapithecus/chunkstream/pool"
	"github.com/justapithecus/chunkstream/types"
)

// Server answers control-plane requests against a single running Pool over
// a Unix domain socket. One connection, one request, one response, then
// the connection is closed — callers (the CLI) are short-lived.
type Server struct {
	pool     *pool.Pool
	listener net.Listener
	logger   *log.Logger

	// onAnchorChange, if set, is called after a successful anchor_set or
	// anchor_reset with the anchor state now in effect. Used to fan out
	// anchor telemetry without coupling this package to package telemetry.
	onAnchorChange func(types.AnchorState)
}

// Listen creates the Unix socket at path (removing any stale socket file
// left by a previous crashed process) and returns a Server bound to pool.
func Listen(path string, p *pool.Pool, logger *log.Logger) (*Server, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	return &Server{pool: p, listener: ln, logger: logger}, nil
}

// OnAnchorChange registers a callback invoked after every anchor_set and
// anchor_reset request with the resulting anchor state.
func (s *Server) OnAnchorChange(fn func(types.AnchorState)) {
	s.onAnchorChange = fn
}

// Serve accepts connections until the listener is closed. Intended to run
// in its own goroutine; returns nil on a clean Close.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := readMsg(conn, &req); err != nil {
		s.logger.Error("control plane: failed to read request", map[string]any{"error": err.Error()})
		return
	}

	resp := s.dispatch(req)
	if err := writeMsg(conn, resp); err != nil {
		s.logger.Error("control plane: failed to write response", map[string]any{"error": err.Error()})
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Op {
	case OpAnchorGet:
		anchor := s.pool.CurrentAnchor()
		return Response{Anchor: &anchor}
	case OpAnchorSet:
		s.pool.SetAnchor(req.Anchor)
		anchor := s.pool.CurrentAnchor()
		if s.onAnchorChange != nil {
			s.onAnchorChange(anchor)
		}
		return Response{Anchor: &anchor}
	case OpAnchorReset:
		prev := s.pool.ResetAnchor()
		if s.onAnchorChange != nil {
			s.onAnchorChange(s.pool.CurrentAnchor())
		}
		return Response{Anchor: &prev}
	case OpStats:
		snapshot, q1Counts, q2Counts := s.pool.FlushMetrics()

		q1 := s.pool.Q1Metrics()
		q1.Counts = q1Counts
		q2 := s.pool.Q2Metrics()
		q2.Counts = q2Counts

		return Response{Stats: &StatsPayload{
			Metrics:          snapshot,
			Q1:               q1,
			Q2:               q2,
			IngestionWorkers: s.pool.IngestionWorkerLoads(),
			OutputWorkers:    s.pool.OutputWorkerLoads(),
		}}
	default:
		return Response{Error: errUnknownOp.Error()}
	}
}
