// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

// Package report merges heterogeneous per-tenant usage records into one
// uniform table: a console rendering and a matching CSV record set with
// identical column order and values.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/stackwatch/swiftmeter/pkg/swift"
)

// errorMarker replaces every numeric cell of a row whose probe failed, so a
// failed tenant shows up as an explicit marker instead of a missing row.
const errorMarker = "ERROR"

// Config configures report rendering.
type Config struct {
	// Human switches numeric columns from raw integers to magnitude strings.
	Human bool

	// OutputPath is the CSV destination. Empty skips the file and renders
	// the console table only.
	OutputPath string
}

// Builder renders a result set. The zero value is not usable; use NewBuilder.
type Builder struct {
	cfg     Config
	console io.Writer
	now     func() time.Time
}

// Option customizes a Builder; used by tests to capture output and pin time.
type Option func(*Builder)

// WithConsole redirects the console table.
func WithConsole(w io.Writer) Option {
	return func(b *Builder) { b.console = w }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a report builder.
func NewBuilder(cfg Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:     cfg,
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PolicyColumns returns the sorted union of policy names across all records.
// It is computed once per run, after collection, because which policies
// exist varies per tenant.
func PolicyColumns(records []swift.AccountUsage) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for name := range rec.Policies {
			seen[name] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}

// Emit renders the result set to the console and, when configured, the CSV
// file. Rows cover every tenant with a nonzero object count plus every
// failed probe; all rows carry the same UTC timestamp. A file create or
// write failure is fatal and reported to the caller.
func (b *Builder) Emit(records []swift.AccountUsage) error {
	columns := PolicyColumns(records)
	timestamp := b.now().UTC().Format(time.RFC3339)

	header := b.header(columns)
	rows := b.rows(records, columns, timestamp)

	if err := b.renderConsole(header, rows); err != nil {
		return err
	}
	if b.cfg.OutputPath != "" {
		if err := b.writeCSV(header, rows); err != nil {
			return fmt.Errorf("report: write %s: %w", b.cfg.OutputPath, err)
		}
	}
	return nil
}

func (b *Builder) header(columns []string) []string {
	header := []string{"project", "bytes", "quota", "containers", "objects"}
	for _, policy := range columns {
		header = append(header,
			fmt.Sprintf("bytes (%s policy)", policy),
			fmt.Sprintf("objects (%s policy)", policy),
		)
	}
	return append(header, "timestampUTC")
}

// rows converts records to cells, sorted by tenant name so repeated runs
// against an unchanged store differ only in the timestamp column.
func (b *Builder) rows(records []swift.AccountUsage, columns []string, timestamp string) [][]string {
	included := make([]swift.AccountUsage, 0, len(records))
	for _, rec := range records {
		if rec.ObjectCount == 0 && !rec.Failed() {
			continue
		}
		included = append(included, rec)
	}
	sort.Slice(included, func(i, j int) bool {
		return included[i].Tenant.Name < included[j].Tenant.Name
	})

	rows := make([][]string, 0, len(included))
	for _, rec := range included {
		rows = append(rows, b.row(rec, columns, timestamp))
	}
	return rows
}

func (b *Builder) row(rec swift.AccountUsage, columns []string, timestamp string) []string {
	row := make([]string, 0, 6+2*len(columns))
	row = append(row, rec.Tenant.Name)

	if rec.Failed() {
		for i := 0; i < 4+2*len(columns); i++ {
			row = append(row, errorMarker)
		}
		return append(row, timestamp)
	}

	row = append(row,
		b.count(rec.BytesUsed, FormatBytes),
		FormatQuota(rec.QuotaBytes, b.cfg.Human),
		b.count(rec.ContainerCount, FormatCount),
		b.count(rec.ObjectCount, FormatCount),
	)
	for _, policy := range columns {
		usage := rec.Policies[policy] // zero value when the tenant has no activity under the policy
		row = append(row,
			b.count(usage.BytesUsed, FormatBytes),
			b.count(usage.ObjectCount, FormatCount),
		)
	}
	return append(row, timestamp)
}

func (b *Builder) count(v uint64, human func(uint64) string) string {
	if b.cfg.Human {
		return human(v)
	}
	return strconv.FormatUint(v, 10)
}

func (b *Builder) renderConsole(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(b.console, 0, 0, 2, ' ', 0)
	writeTabRow(w, header)
	for _, row := range rows {
		writeTabRow(w, row)
	}
	return w.Flush()
}

func writeTabRow(w io.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, cell)
	}
	fmt.Fprintln(w)
}

func (b *Builder) writeCSV(header []string, rows [][]string) error {
	f, err := os.Create(b.cfg.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Totals aggregates a result set for the run summary.
type Totals struct {
	Tenants  int
	Failed   int
	Bytes    uint64
	Objects  uint64
	Policies int
}

// Summarize computes run totals across all records, failed probes excluded
// from the byte and object sums.
func Summarize(records []swift.AccountUsage) Totals {
	t := Totals{Tenants: len(records)}
	policies := make(map[string]struct{})
	for _, rec := range records {
		if rec.Failed() {
			t.Failed++
			continue
		}
		t.Bytes += rec.BytesUsed
		t.Objects += rec.ObjectCount
		for name := range rec.Policies {
			policies[name] = struct{}{}
		}
	}
	t.Policies = len(policies)
	return t
}
