// Package runner drives one clibate test: it applies edit batches to
// sandboxed files, runs the test's command against the sandbox, and
// compares the captured stdout/stderr against the test's success:/
// failure: expectations. It is the "external collaborator" spec.md
// §1/§6 names — command execution, stream comparison, and batch
// persistence/rollback are its responsibility, not the edit engine's.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/goliatone/go-logger/glog"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/clibate/clibate/internal/diag"
	"github.com/clibate/clibate/internal/edit"
	"github.com/clibate/clibate/internal/editlang"
	"github.com/clibate/clibate/internal/location"
	"github.com/clibate/clibate/internal/sandbox"
	"github.com/clibate/clibate/internal/specgrammar"
)

// Runner executes test sections against a sandbox.
type Runner struct {
	Shell  string
	Logger glog.Logger
}

// New builds a Runner. shell defaults to "/bin/sh" when empty; logger
// may be nil, in which case the runner logs nothing.
func New(shell string, logger glog.Logger) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Runner{Shell: shell, Logger: logger}
}

// TestResult is the outcome of running one test section.
type TestResult struct {
	Name       string
	ExitCode   int
	Stdout     string
	Stderr     string
	Passed     bool
	StdoutDiff string
	StderrDiff string
}

// RunTest applies test's edit batches to sb, runs its command:, and
// compares output against its success:/failure: expectations. A
// transient edit batch (the default) is rolled back once the test
// completes; a persistent one (spec §3 "Edit batch", §4.6
// "Persistence") is left mutating the sandbox's baseline file.
func (r *Runner) RunTest(ctx context.Context, sb *sandbox.Sandbox, specFile string, test *specgrammar.TestSection, chain location.Chain) (*TestResult, error) {
	name := test.UnquotedName()
	r.logf(glog.Info, "running test %q", name)

	var rollbacks []func() error
	defer func() {
		for i := len(rollbacks) - 1; i >= 0; i-- {
			if err := rollbacks[i](); err != nil {
				r.logf(glog.Warn, "rollback failed: %v", err)
			}
		}
	}()

	for _, batch := range test.EditBatches() {
		rollback, err := r.applyBatch(sb, specFile, batch, chain)
		if err != nil {
			return nil, err
		}
		if rollback != nil {
			rollbacks = append(rollbacks, rollback)
		}
	}

	commandLine := test.Command()
	if commandLine == "" {
		return nil, diag.NewRunError(location.Location{File: specFile}, chain, "test %q declares no command:", name)
	}

	stdout, stderr, exitCode, err := r.execute(ctx, sb.Root(), commandLine)
	if err != nil {
		return nil, diag.NewRunError(location.Location{File: specFile}, chain, "test %q: %v", name, err)
	}

	result := &TestResult{Name: name, ExitCode: exitCode, Stdout: stdout, Stderr: stderr, Passed: true}

	// A raw block's trailing newline is stripped by the grammar layer
	// (StripRawBlock), so the trailing newline a shell command's own
	// stdout/stderr naturally ends with is trimmed here too before
	// comparing — this is a stream-content check, not a byte-for-byte
	// transcript check.
	if want, ok := test.Success(); ok && want != strings.TrimRight(stdout, "\n") {
		result.Passed = false
		result.StdoutDiff = unifiedDiff(want, stdout, "stdout")
	}
	if want, ok := test.Failure(); ok && want != strings.TrimRight(stderr, "\n") {
		result.Passed = false
		result.StderrDiff = unifiedDiff(want, stderr, "stderr")
	}

	r.logf(glog.Debug, "test %q applied %d edit batch(es), exit=%d, passed=%v", name, len(test.EditBatches()), exitCode, result.Passed)
	return result, nil
}

// applyBatch parses and applies one edits clause against the sandbox
// file it targets, returning a rollback closure for transient batches
// (nil for persistent ones, which are meant to stick).
func (r *Runner) applyBatch(sb *sandbox.Sandbox, specFile string, batch *specgrammar.EditsClause, chain location.Chain) (func() error, error) {
	target := batch.UnquotedFile()

	before, err := sb.ReadFile(target)
	if err != nil {
		return nil, diag.NewRunError(location.Location{File: specFile}, chain, "read batch target %s: %v", target, err)
	}

	ops, err := editlang.Parse(specFile, batch.Source(), chain)
	if err != nil {
		return nil, err
	}

	lines := splitLines(before)
	after, err := edit.Apply(lines, ops, chain)
	if err != nil {
		return nil, err
	}

	if err := sb.WriteFile(target, joinLines(after)); err != nil {
		return nil, diag.NewRunError(location.Location{File: specFile}, chain, "write batch target %s: %v", target, err)
	}

	r.logf(glog.Info, "applied %d op(s) to %s (persistent=%v)", len(ops), target, batch.Persistent)

	if batch.Persistent {
		return nil, nil
	}
	return func() error { return sb.WriteFile(target, before) }, nil
}

// execute runs commandLine through the configured shell in dir,
// grounded on the corpus's exec.CommandContext + bytes.Buffer
// stdout/stderr capture idiom.
func (r *Runner) execute(ctx context.Context, dir, commandLine string) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, r.Shell, "-c", commandLine)
	cmd.Dir = dir

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	runErr := cmd.Run()
	exitCode = 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return out.String(), errOut.String(), exitCode, fmt.Errorf("run %q: %w", commandLine, runErr)
		}
	}
	return out.String(), errOut.String(), exitCode, nil
}

// unifiedDiff renders a want-vs-got mismatch the way termfx-morfx's
// util.UnifiedDiff renders a source/modified mismatch.
func unifiedDiff(want, got, label string) string {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "expected " + label,
		ToFile:   "actual " + label,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}
	return text
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func (r *Runner) logf(level glog.Level, format string, args ...any) {
	if r.Logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch level {
	case glog.Debug:
		r.Logger.Debug(msg)
	case glog.Warn:
		r.Logger.Warn(msg)
	case glog.Error:
		r.Logger.Error(msg)
	default:
		r.Logger.Info(msg)
	}
}
