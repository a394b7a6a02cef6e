// clibate is the CLI entrypoint for the edit engine and its
// collaborators: it resolves a test-spec document (following its
// include: chain), materializes a sandbox from its file:/copy:
// directives, and runs each test: section against it.
package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/clibate/clibate/internal/diag"
	"github.com/clibate/clibate/internal/location"
	"github.com/clibate/clibate/internal/runner"
	"github.com/clibate/clibate/internal/sandbox"
	"github.com/clibate/clibate/internal/specgrammar"
)

// resolveDocument parses path and recursively inlines every include:
// section it names, in document order, depth-first. seen guards
// against include cycles across recursive calls.
func resolveDocument(path string, chain location.Chain, seen map[string]bool) ([]*specgrammar.Section, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if seen[abs] {
		return nil, diag.NewRunError(location.Location{File: path}, chain, "include cycle detected at %s", path)
	}
	seen[abs] = true

	contents, err := sandbox.LoadInclude(filepath.Dir(abs), filepath.Base(abs))
	if err != nil {
		return nil, err
	}

	doc, err := specgrammar.Parse(path, contents)
	if err != nil {
		return nil, err
	}

	var out []*specgrammar.Section
	baseDir := filepath.Dir(abs)
	for _, sec := range doc.Sections {
		if sec.Include == nil {
			out = append(out, sec)
			continue
		}
		childChain := chain.Push(location.Location{File: path})
		childPath := filepath.Join(baseDir, sec.Include.UnquotedPath())
		childSections, err := resolveDocument(childPath, childChain, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, childSections...)
	}
	return out, nil
}

// materialize applies every file:/copy: section's directive to sb,
// resolving copy: glob patterns relative to specDir.
func materialize(sb *sandbox.Sandbox, specDir string, sections []*specgrammar.Section) error {
	for _, sec := range sections {
		switch {
		case sec.File != nil:
			if err := sb.WriteFile(sec.File.UnquotedName(), sec.File.Contents()); err != nil {
				return err
			}
		case sec.Copy != nil:
			if _, err := sb.CopyGlob(specDir, sec.Copy.UnquotedPattern()); err != nil {
				return err
			}
		}
	}
	return nil
}

// suiteResult is the outcome of running every test: section in a
// resolved document.
type suiteResult struct {
	Total   int
	Passed  int
	Results []*runner.TestResult
}

func (s *suiteResult) Failed() int { return s.Total - s.Passed }

// runSuite materializes specFile's file:/copy: directives into a
// fresh sandbox and runs each of its test: sections in document
// order, returning a summary of pass/fail counts.
func runSuite(ctx context.Context, r *runner.Runner, specFile string) (*suiteResult, error) {
	sections, err := resolveDocument(specFile, nil, map[string]bool{})
	if err != nil {
		return nil, err
	}

	sb, err := sandbox.New("")
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	defer sb.Close()

	specDir := filepath.Dir(specFile)
	if err := materialize(sb, specDir, sections); err != nil {
		return nil, err
	}

	result := &suiteResult{}
	for _, sec := range sections {
		if sec.Test == nil {
			continue
		}
		result.Total++
		testResult, err := r.RunTest(ctx, sb, specFile, sec.Test, nil)
		if err != nil {
			return result, err
		}
		result.Results = append(result.Results, testResult)
		if testResult.Passed {
			result.Passed++
		}
	}
	return result, nil
}
