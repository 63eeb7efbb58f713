package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/google/shlex"
)

// Runner produces one CycloneDX document for a task.
type Runner interface {
	Run(ctx context.Context, task Task) (json.RawMessage, error)
}

// execRunner shells out to the external generator tool. The base command is
// operator-configured and may carry its own flags, so it is split with shell
// quoting rules.
type execRunner struct {
	command string
	workDir string
}

// NewExecRunner builds a Runner invoking the given base command per task.
func NewExecRunner(command, workDir string) (Runner, error) {
	if command == "" {
		return nil, fmt.Errorf("generator command is required")
	}
	if _, err := shlex.Split(command); err != nil {
		return nil, fmt.Errorf("invalid generator command: %w", err)
	}
	return &execRunner{command: command, workDir: workDir}, nil
}

// commandFor renders the argv run for a task.
func (r *execRunner) commandFor(task Task) ([]string, error) {
	argv, err := shlex.Split(r.command)
	if err != nil {
		return nil, err
	}
	argv = append(argv,
		"--type", string(task.Config.ConfigType()),
		"--target", task.Target,
		"--index", fmt.Sprint(task.Index),
		"--processors", task.Processors,
	)
	return argv, nil
}

func (r *execRunner) Run(ctx context.Context, task Task) (json.RawMessage, error) {
	argv, err := r.commandFor(task)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("generator %s: %w: %s", task, err, firstLine(stderr.Bytes()))
	}

	bom := bytes.TrimSpace(stdout.Bytes())
	if !json.Valid(bom) {
		return nil, fmt.Errorf("generator %s produced invalid JSON", task)
	}
	return json.RawMessage(bom), nil
}

func firstLine(b []byte) string {
	if idx := bytes.IndexByte(b, '\n'); idx >= 0 {
		b = b[:idx]
	}
	return string(bytes.TrimSpace(b))
}
