package provider

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/FractalBrew/geckocpp/internal/proc"
	"github.com/FractalBrew/geckocpp/internal/workspace"
)

// Server speaks the provider protocol on stdio. It owns the workspace it
// answers for; folder lifecycle requests and per-file queries both go
// through it.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex

	logger  *slog.Logger
	version string
	ws      *workspace.Workspace

	wg sync.WaitGroup

	mu         sync.Mutex
	registered bool
}

// NewServer wires a server around a fresh workspace. Log records at or
// above forwardLevel are mirrored to the host as geckocpp/log messages on
// top of the base handler; source yields per-folder options at probe time.
func NewServer(version string, runner proc.Runner, source workspace.OptionsSource, base *slog.Logger, forwardLevel slog.Level) *Server {
	s := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		version: version,
	}
	s.logger = slog.New(NewLogHandler(base.Handler(), s, forwardLevel))
	s.ws = workspace.New(runner, source, &hostNotifier{s: s}, s.logger)
	return s
}

// Workspace returns the workspace the server answers for, so external
// triggers (the config watcher) can drive rebuilds.
func (s *Server) Workspace() *workspace.Workspace {
	return s.ws
}

// Start runs the message loop until stdin closes. In-flight request
// handlers are waited out before it returns.
func (s *Server) Start() error {
	s.logger.Info("provider server starting", "version", s.version)
	defer s.wg.Wait()

	for {
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("provider server shutting down")
				return nil
			}
			if errors.Is(err, errMalformed) {
				s.logger.Error("discarding malformed message", "error", err.Error())
				_ = s.writeError(nil, ParseError, err.Error())
				continue
			}
			return err
		}

		if msg.IsRequest() {
			// Requests run as independent goroutines; slow folder
			// probes must not block per-file queries.
			s.wg.Add(1)
			go func(msg *Message) {
				defer s.wg.Done()
				if resp := s.handleRequest(msg); resp != nil {
					if err := s.writeMessage(resp); err != nil {
						s.logger.Error("failed to write response", "error", err.Error())
					}
				}
			}(msg)
			continue
		}

		if msg.IsNotification() {
			s.handleNotification(msg)
			continue
		}

		s.logger.Debug("ignoring unexpected message", "id", msg.Id)
	}
}

// SetStdin sets the input stream (for testing)
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// SendNotification pushes a notification to the host.
func (s *Server) SendNotification(method string, params interface{}) error {
	return s.writeMessage(NewNotificationMessage(method, params))
}

func (s *Server) isRegistered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

func (s *Server) setRegistered(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = v
}
