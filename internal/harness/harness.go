// Package harness runs conformance scenarios against the collection store.
//
// A scenario is a YAML file describing a sequence of mutations (adds, edits,
// deletes) and ordering switches, plus the expected final view. The harness
// executes the steps through the same public surface the presentation layer
// uses - edit sessions, DeleteAt, SetOrdering - and records the materialized
// view after each step as a trace. Traces are compared against golden files
// (see golden.go), which makes regressions in the observation pipeline show
// up as a readable diff of view states.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/collection"
	"github.com/roach88/liveset/internal/memory"
	"github.com/roach88/liveset/internal/record"
	"github.com/roach88/liveset/internal/sqlite"
	"github.com/roach88/liveset/internal/testutil"
)

// convergeTimeout bounds how long the harness waits for the store to catch
// up with backend state after a step.
const convergeTimeout = 5 * time.Second

// TraceStep records the view state after one executed step.
type TraceStep struct {
	Step     string   `json:"step"`
	Ordering string   `json:"ordering"`
	Names    []string `json:"names"`
}

// Result holds the executed trace and any assertion failures.
type Result struct {
	Trace  []TraceStep
	Errors []string
}

// Passed reports whether the scenario ran without assertion failures.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// AddError records an assertion failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Run executes a scenario and returns its result.
//
// Each scenario runs against a fresh backend for isolation: a new in-memory
// instance, or a throwaway SQLite database under a temp dir.
func Run(scenario *Scenario) (*Result, error) {
	b, cleanup, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	s, err := collection.New(b, logger)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	result := &Result{}

	for i, step := range scenario.Steps {
		if err := executeStep(ctx, s, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.label(), err)
		}
		names, err := converge(ctx, s, b)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.label(), err)
		}
		result.Trace = append(result.Trace, TraceStep{
			Step:     step.label(),
			Ordering: s.Ordering().String(),
			Names:    names,
		})
	}

	evaluateExpect(result, scenario.Expect)
	return result, nil
}

// openBackend builds the scenario's backend variant.
func openBackend(kind string) (backend.Backend, func(), error) {
	switch kind {
	case "", "memory":
		b := memory.New()
		return b, func() { b.Close() }, nil
	case "sqlite":
		dir, err := os.MkdirTemp("", "liveset-harness-*")
		if err != nil {
			return nil, nil, fmt.Errorf("create temp dir: %w", err)
		}
		b, err := sqlite.Open(filepath.Join(dir, "scenario.db"))
		if err != nil {
			os.RemoveAll(dir)
			return nil, nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return b, func() {
			b.Close()
			os.RemoveAll(dir)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// executeStep dispatches one scenario step through the store's public
// surface.
func executeStep(ctx context.Context, s *collection.Store, step Step) error {
	switch {
	case step.Add != nil:
		sess := s.NewBlankSession()
		sess.Name = step.Add.Name
		sess.Notes = step.Add.Notes
		if step.Add.Quantity != nil {
			sess.SetQuantity(*step.Add.Quantity)
		}
		return sess.Save(ctx)

	case step.Edit != nil:
		current := s.Current()
		if step.Edit.Position < 0 || step.Edit.Position >= len(current) {
			return fmt.Errorf("edit position %d out of range (%d records)", step.Edit.Position, len(current))
		}
		sess := s.NewSession(current[step.Edit.Position])
		if step.Edit.Name != nil {
			sess.Name = *step.Edit.Name
		}
		if step.Edit.Quantity != nil {
			sess.SetQuantity(*step.Edit.Quantity)
		}
		if step.Edit.Notes != nil {
			sess.Notes = *step.Edit.Notes
		}
		return sess.Save(ctx)

	case step.Delete != nil:
		_, err := s.DeleteAt(ctx, step.Delete)
		return err

	case step.Ordering != "":
		ordering, ok := record.ParseOrdering(step.Ordering)
		if !ok {
			return fmt.Errorf("unknown ordering %q", step.Ordering)
		}
		return s.SetOrdering(ordering)

	default:
		return nil
	}
}

// converge waits until the store's materialized view matches a fresh
// ReadAll of the backend under the active ordering, then returns the view's
// names. This is the harness's oracle: after every step the live view must
// catch up with durable state.
func converge(ctx context.Context, s *collection.Store, b backend.Backend) ([]string, error) {
	expected, err := b.ReadAll(ctx, backend.Query{Ordering: s.Ordering()})
	if err != nil {
		return nil, fmt.Errorf("read backend state: %w", err)
	}
	want := namesOf(expected)

	ok := testutil.Eventually(convergeTimeout, func() bool {
		return equalNames(namesOf(s.Current()), want)
	})
	if !ok {
		return nil, fmt.Errorf("view never converged: have %v, want %v", namesOf(s.Current()), want)
	}
	return want, nil
}

// evaluateExpect checks the final view against the scenario's expectation.
func evaluateExpect(result *Result, expect Expect) {
	if expect.Names == nil {
		return
	}
	if len(result.Trace) == 0 {
		if len(expect.Names) != 0 {
			result.AddError(fmt.Sprintf("expected final names %v but no steps ran", expect.Names))
		}
		return
	}
	final := result.Trace[len(result.Trace)-1].Names
	if !equalNames(final, expect.Names) {
		result.AddError(fmt.Sprintf("final names = %v, want %v", final, expect.Names))
	}
}

func namesOf(records []record.Record) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
