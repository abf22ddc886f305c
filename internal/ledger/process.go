package ledger

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// process is the half of a subprocess the session talks to. Tests substitute
// pipes for a real binary.
type process struct {
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
	wait   func() error
	kill   func() error
}

func startProcess(cfg Config) (*process, error) {
	var args []string
	if cfg.File != "" {
		args = append(args, "-f", cfg.File)
	}
	cmd := exec.Command(cfg.Command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}
	return &process{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		wait:   cmd.Wait,
		kill:   func() error { return cmd.Process.Kill() },
	}, nil
}

type readResult struct {
	line string
	err  error
}

// pump reads r line by line into lines until the stream fails or quit
// closes. Terminators are stripped; an unterminated final line is still
// forwarded before its error.
func pump(r io.Reader, lines chan<- readResult, quit <-chan struct{}) {
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			line := strings.TrimSuffix(raw, "\n")
			line = strings.TrimSuffix(line, "\r")
			select {
			case lines <- readResult{line: line}:
			case <-quit:
				return
			}
		}
		if err != nil {
			select {
			case lines <- readResult{err: err}:
			case <-quit:
			}
			return
		}
	}
}
