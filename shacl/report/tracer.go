package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SDM-TIB/Trav-SHACL/shacl/validation"
)

var _ validation.Tracer = (*Tracer)(nil)

// MultiTracer fans a single Record call out to several tracers, so a
// run can feed both the CSV Tracer and a ConsolePrinter at once.
type MultiTracer []validation.Tracer

func (m MultiTracer) Record(shapeName string, valid bool) {
	for _, t := range m {
		t.Record(shapeName, valid)
	}
}

// Tracer implements validation.Tracer, appending one row per
// registered target to an in-memory buffer that Flush later writes as
// traces.csv (elapsed-time tracing per classified target, grounded on
// original_source/TravSHACL/utils/ValidationStats.py's trace log).
type Tracer struct {
	mu    sync.Mutex
	start time.Time
	rows  [][]string
}

// NewTracer starts a Tracer's clock at construction time, so every row
// it records carries an elapsed-since-run-start offset.
func NewTracer() *Tracer {
	return &Tracer{start: time.Now()}
}

// Record appends one row: elapsed offset, shape name, and valid/violated.
func (t *Tracer) Record(shapeName string, valid bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	outcome := "violated"
	if valid {
		outcome = "valid"
	}
	t.rows = append(t.rows, []string{
		fmt.Sprintf("%.3f", time.Since(t.start).Seconds()),
		shapeName,
		outcome,
	})
}

// Flush writes every recorded row to traces.csv under dir.
func (t *Tracer) Flush(dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := filepath.Join(dir, "traces.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"elapsed_seconds", "shape", "outcome"}); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	for _, row := range t.rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %q: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}
