// Package report is the persisted-output writer (§6): the plain
// target logs, the stats.txt summary table, the per-query traces.csv,
// and the SHACL-conformance-style validationReport.ttl. None of it
// runs unless a caller asks for it — the engine itself never touches
// a filesystem.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/validation"
)

// WriteTargetLogs writes one file per partition, one "shape<TAB>IRI"
// line per target, in sorted order for reproducible diffs between runs.
func WriteTargetLogs(dir string, schema *shacl.Schema) error {
	valid := make([]string, 0)
	violated := make([]string, 0)
	for _, s := range schema.Shapes() {
		for iri := range s.Targets.Valid {
			valid = append(valid, s.Name+"\t"+iri)
		}
		for iri := range s.Targets.Violated {
			violated = append(violated, s.Name+"\t"+iri)
		}
	}
	sort.Strings(valid)
	sort.Strings(violated)

	if err := writeLines(filepath.Join(dir, "targets_valid.log"), valid); err != nil {
		return err
	}
	return writeLines(filepath.Join(dir, "targets_violated.log"), violated)
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("writing %q: %w", path, err)
		}
	}
	return nil
}

// WriteStats renders a per-shape valid/violated/total table to
// stats.txt with tablewriter, the same library and markdown renderer
// the teacher's own table formatter uses for relation dumps.
func WriteStats(dir string, stats []validation.ShapeStats, elapsed time.Duration) error {
	path := filepath.Join(dir, "stats.txt")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()

	if err := renderStats(f, stats, elapsed); err != nil {
		return fmt.Errorf("rendering %q: %w", path, err)
	}
	return nil
}

func renderStats(w io.Writer, stats []validation.ShapeStats, elapsed time.Duration) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Shape", "Valid", "Violated", "Total"})

	var totalValid, totalViolated int
	for _, s := range stats {
		total := s.Valid + s.Violated
		table.Append([]string{s.Name, fmt.Sprintf("%d", s.Valid), fmt.Sprintf("%d", s.Violated), fmt.Sprintf("%d", total)})
		totalValid += s.Valid
		totalViolated += s.Violated
	}
	table.Render()

	_, err := fmt.Fprintf(w, "\n%d shapes, %d valid, %d violated, %s elapsed\n",
		len(stats), totalValid, totalViolated, elapsed.Round(time.Millisecond))
	return err
}

// WriteValidationReport emits a SHACL-conformance-style Turtle report
// (§6): sh:conforms true when every target is valid, otherwise one
// sh:ValidationResult block per violated target.
func WriteValidationReport(dir string, schema *shacl.Schema) error {
	path := filepath.Join(dir, "validationReport.ttl")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	defer f.Close()

	var results []string
	for _, s := range schema.Shapes() {
		violated := make([]string, 0, len(s.Targets.Violated))
		for iri := range s.Targets.Violated {
			violated = append(violated, iri)
		}
		sort.Strings(violated)
		for _, iri := range violated {
			results = append(results, fmt.Sprintf(
				"[ a sh:ValidationResult ;\n  sh:focusNode %s ;\n  sh:sourceShape :%s ;\n  sh:resultSeverity sh:Violation ]",
				iri, s.Name))
		}
	}

	var b strings.Builder
	b.WriteString("@prefix sh: <http://www.w3.org/ns/shacl#> .\n")
	b.WriteString("@prefix : <http://example.org/shapes#> .\n\n")
	b.WriteString("[ a sh:ValidationReport ;\n")
	if len(results) == 0 {
		b.WriteString("  sh:conforms true ]\n")
	} else {
		b.WriteString("  sh:conforms false ;\n")
		b.WriteString("  sh:result\n    ")
		b.WriteString(strings.Join(results, ",\n    "))
		b.WriteString(" ]\n")
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}
