package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"

	"github.com/nao1215/portvapt/internal/model"
)

// DefaultTool is the reference scanner binary.
const DefaultTool = "nmap"

// ErrToolUnavailable is returned when the reference scanner cannot be
// found or started.
var ErrToolUnavailable = errors.New("reference scanner unavailable")

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run looks name up in PATH and runs it.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrToolUnavailable, err)
	}
	out, err := exec.CommandContext(ctx, path, args...).Output() //nolint:gosec // arguments are a port range and a host
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}

// Verifier compares our open ports with those of a reference scanner.
type Verifier struct {
	runner Runner
	tool   string
	logger *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(v *Verifier) {
		if r != nil {
			v.runner = r
		}
	}
}

// WithTool sets the reference scanner binary name or path.
func WithTool(tool string) Option {
	return func(v *Verifier) {
		if tool != "" {
			v.tool = tool
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a Verifier that runs nmap.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		runner: ExecRunner{},
		tool:   DefaultTool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify scans host over r with the reference scanner and diffs its open
// ports against ours. The returned Verification is never nil; when the
// reference could not be run or parsed its Err field is set and the error
// is also returned, so the caller can report it and carry on.
func (v *Verifier) Verify(ctx context.Context, host string, r model.PortRange, ours []uint16) (*model.Verification, error) {
	result := &model.Verification{
		Tool:          v.tool,
		OnlyOurs:      make([]uint16, 0),
		OnlyReference: make([]uint16, 0),
	}

	args := []string{"-p", r.String(), "-oX", "-", host}
	v.logger.Debug("running reference scanner", "tool", v.tool, "args", args)

	out, err := v.runner.Run(ctx, v.tool, args...)
	if err != nil {
		result.Err = err.Error()
		return result, err
	}

	reference, err := ParseOpenPorts(out)
	if err != nil {
		result.Err = err.Error()
		return result, err
	}
	reference = slices.DeleteFunc(reference, func(p uint16) bool { return !r.Contains(p) })

	result.OnlyOurs, result.OnlyReference = Diff(ours, reference)
	return result, nil
}

// Diff returns the ports only in a and the ports only in b, each sorted
// ascending without duplicates.
func Diff(a, b []uint16) (onlyA, onlyB []uint16) {
	setA := toSet(a)
	setB := toSet(b)

	onlyA = make([]uint16, 0)
	for p := range setA {
		if _, ok := setB[p]; !ok {
			onlyA = append(onlyA, p)
		}
	}
	onlyB = make([]uint16, 0)
	for p := range setB {
		if _, ok := setA[p]; !ok {
			onlyB = append(onlyB, p)
		}
	}

	slices.Sort(onlyA)
	slices.Sort(onlyB)
	return onlyA, onlyB
}

func toSet(ports []uint16) map[uint16]struct{} {
	set := make(map[uint16]struct{}, len(ports))
	for _, p := range ports {
		set[p] = struct{}{}
	}
	return set
}
