package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ProcessConfig configures the script-based transport
type ProcessConfig struct {
	Command string
	Script  string
	KeyFile string
	Dir     string
	Env     []string
}

// ProcessTransport runs the generation script once per call and reads
// its stdout
type ProcessTransport struct {
	cfg ProcessConfig
}

// NewProcessTransport creates a process transport
func NewProcessTransport(cfg ProcessConfig) *ProcessTransport {
	if cfg.Command == "" {
		cfg.Command = "python3"
	}
	return &ProcessTransport{cfg: cfg}
}

func (t *ProcessTransport) args(req Request) []string {
	var args []string
	if t.cfg.Script != "" {
		args = append(args, t.cfg.Script)
	}
	args = append(args,
		"--query", req.Query,
		"--feature", req.Feature,
		"--task", string(req.Task),
	)
	if t.cfg.KeyFile != "" {
		args = append(args, "--key-file", t.cfg.KeyFile)
	}
	if req.Module != "" {
		args = append(args, "--module", req.Module)
	}
	return args
}

// Call runs the script and returns its trimmed stdout
func (t *ProcessTransport) Call(ctx context.Context, req Request) (string, error) {
	cmd := exec.CommandContext(ctx, t.cfg.Command, t.args(req)...)
	cmd.Dir = t.cfg.Dir
	cmd.Env = append(os.Environ(), t.cfg.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", classify(ctx, ErrProcess, fmt.Errorf("script exited with code %d: %s",
				exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String()), 1024)))
		}
		return "", classify(ctx, ErrProcess, fmt.Errorf("failed to start process: %w", err))
	}

	return strings.TrimSpace(stdout.String()), nil
}
