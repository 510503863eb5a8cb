package provider

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum size for a single protocol message (1MB).
// Batch configuration requests for many files fit comfortably.
const MaxMessageSize = 1024 * 1024

// errMalformed marks lines that were read fine but are not valid JSON-RPC;
// the loop answers those with a parse error instead of shutting down.
var errMalformed = errors.New("malformed message")

// readMessage reads one JSON-RPC message from the input stream
func (s *Server) readMessage() (*Message, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, MaxMessageSize), MaxMessageSize)
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return nil, io.EOF
	}

	line := s.scanner.Text()
	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return &msg, nil
}

// writeMessage writes one JSON-RPC message to the output stream. Guarded
// by a mutex: responses and notifications come from different goroutines.
func (s *Server) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

// writeError writes an error response
func (s *Server) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(NewErrorMessage(id, code, message, nil))
}
