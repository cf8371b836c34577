package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// Service is what the daemon serves. Thread safety is the implementor's
// responsibility.
type Service interface {
	MatchReports(ctx context.Context, paths []string, diagnostics bool, timeout time.Duration) []Report
	MatchTextReport(ctx context.Context, name, text string, diagnostics bool, timeout time.Duration) Report
	ReloadIndex(force bool) (ReloadResult, error)
	Health() HealthResult
	IndexStats() (StatsResult, error)
}

// Server is the daemon that listens on a Unix socket and serves match requests.
type Server struct {
	svc      Service
	listener net.Listener
	sockPath string
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by svc.
func NewServer(svc Service, sockPath string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		svc:        svc,
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. A socket file nobody answers
// on is stale and is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, cancels in-flight matches and removes the
// socket file. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// maxMessage bounds one request line; match requests may carry file text.
const maxMessage = 64 * 1024 * 1024

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodMatch:
		return s.handleMatch(req)
	case MethodHealth:
		h := s.svc.Health()
		h.Uptime = time.Since(s.started).Round(time.Second).String()
		return Response{ID: req.ID, Result: h}
	case MethodStats:
		st, err := s.svc.IndexStats()
		if err != nil {
			return Response{ID: req.ID, Error: err.Error()}
		}
		return Response{ID: req.ID, Result: st}
	case MethodReload:
		return s.handleReload(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into dst.
func decodeParams(req Request, dst interface{}) error {
	if req.Params == nil {
		return nil
	}
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsJSON, dst)
}

func (s *Server) handleMatch(req Request) Response {
	var params MatchParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid match params"}
	}

	start := time.Now()
	var reports []Report
	if len(params.Paths) > 0 {
		reports = s.svc.MatchReports(s.ctx, params.Paths, params.Diagnostics, params.Timeout)
	} else {
		reports = []Report{s.svc.MatchTextReport(s.ctx, params.Name, params.Text, params.Diagnostics, params.Timeout)}
	}

	return Response{
		ID: req.ID,
		Result: MatchResult{
			Reports: reports,
			Elapsed: time.Since(start).String(),
		},
	}
}

func (s *Server) handleReload(req Request) Response {
	var params ReloadParams
	if err := decodeParams(req, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid reload params"}
	}
	result, err := s.svc.ReloadIndex(params.Force)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
