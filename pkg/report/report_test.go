// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package report_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stackwatch/swiftmeter/pkg/report"
	"github.com/stackwatch/swiftmeter/pkg/swift"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func sampleRecords() []swift.AccountUsage {
	return []swift.AccountUsage{
		{
			Tenant:         swift.Tenant{ID: "b", Name: "beta"},
			BytesUsed:      2048,
			ContainerCount: 1,
			ObjectCount:    5,
			QuotaBytes:     swift.QuotaUnset,
			Policies: map[string]swift.PolicyUsage{
				"silver": {BytesUsed: 2048, ObjectCount: 5},
			},
		},
		{
			Tenant:         swift.Tenant{ID: "a", Name: "alpha"},
			BytesUsed:      1536,
			ContainerCount: 2,
			ObjectCount:    10,
			QuotaBytes:     0,
			Policies: map[string]swift.PolicyUsage{
				"Gold": {BytesUsed: 1536, ObjectCount: 10},
			},
		},
	}
}

func emitCSV(t *testing.T, records []swift.AccountUsage, human bool) [][]string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "usage.csv")
	builder := report.NewBuilder(
		report.Config{Human: human, OutputPath: path},
		report.WithConsole(&bytes.Buffer{}),
		report.WithClock(fixedClock),
	)
	require.NoError(t, builder.Emit(records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestPolicyColumns_SortedUnion(t *testing.T) {
	t.Parallel()

	records := []swift.AccountUsage{
		{Policies: map[string]swift.PolicyUsage{"silver": {}, "Gold": {}}},
		{Policies: map[string]swift.PolicyUsage{"Gold": {}, "Cold": {}}},
		{Policies: nil}, // contributes no columns
	}
	assert.Equal(t, []string{"Cold", "Gold", "silver"}, report.PolicyColumns(records))
}

func TestPolicyColumns_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, report.PolicyColumns(nil))
}

func TestEmit_CSVLayout(t *testing.T) {
	t.Parallel()

	rows := emitCSV(t, sampleRecords(), false)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"project", "bytes", "quota", "containers", "objects",
		"bytes (Gold policy)", "objects (Gold policy)",
		"bytes (silver policy)", "objects (silver policy)",
		"timestampUTC",
	}, rows[0])

	// Rows sorted by tenant name; zero-filled for absent policies.
	assert.Equal(t, []string{
		"alpha", "1536", "0", "2", "10",
		"1536", "10",
		"0", "0",
		"2025-06-01T12:00:00Z",
	}, rows[1])
	assert.Equal(t, []string{
		"beta", "2048", "-1", "1", "5",
		"0", "0",
		"2048", "5",
		"2025-06-01T12:00:00Z",
	}, rows[2])
}

func TestEmit_HumanRendering(t *testing.T) {
	t.Parallel()

	rows := emitCSV(t, sampleRecords(), true)
	require.Len(t, rows, 3)
	assert.Equal(t, "1.50 KiB", rows[1][1])
	assert.Equal(t, "0 B", rows[1][2], "explicit zero quota")
	assert.Equal(t, "-1", rows[2][2], "unset quota stays -1")
	assert.Equal(t, "10", rows[1][4])
}

func TestEmit_SkipsZeroObjectTenants(t *testing.T) {
	t.Parallel()

	records := append(sampleRecords(), swift.AccountUsage{
		Tenant:     swift.Tenant{ID: "c", Name: "empty"},
		QuotaBytes: swift.QuotaUnset,
	})
	rows := emitCSV(t, records, false)
	require.Len(t, rows, 3, "zero-object tenant contributes no row")
	for _, row := range rows[1:] {
		assert.NotEqual(t, "empty", row[0])
	}
}

func TestEmit_FailedProbeRenderedAsMarkedRow(t *testing.T) {
	t.Parallel()

	records := append(sampleRecords(), swift.AccountUsage{
		Tenant:     swift.Tenant{ID: "c", Name: "broken"},
		QuotaBytes: swift.QuotaUnset,
		Err:        errors.New("connection refused"),
	})
	rows := emitCSV(t, records, false)
	require.Len(t, rows, 4, "failed tenant keeps its row")

	var broken []string
	for _, row := range rows[1:] {
		if row[0] == "broken" {
			broken = row
		}
	}
	require.NotNil(t, broken)
	for _, cell := range broken[1 : len(broken)-1] {
		assert.Equal(t, "ERROR", cell)
	}
	assert.Equal(t, "2025-06-01T12:00:00Z", broken[len(broken)-1])
}

func TestEmit_ConsoleMatchesCSV(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "usage.csv")
	builder := report.NewBuilder(
		report.Config{OutputPath: path},
		report.WithConsole(&console),
		report.WithClock(fixedClock),
	)
	require.NoError(t, builder.Emit(sampleRecords()))

	out := console.String()
	assert.Contains(t, out, "project")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Contains(t, out, "bytes (Gold policy)")
	assert.Contains(t, out, "2025-06-01T12:00:00Z")
}

func TestEmit_Idempotent_ExceptTimestamp(t *testing.T) {
	t.Parallel()

	first := emitCSV(t, sampleRecords(), false)
	second := emitCSV(t, sampleRecords(), false)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "row %d differs", i)
	}
}

func TestEmit_NoOutputPathSkipsFile(t *testing.T) {
	t.Parallel()

	builder := report.NewBuilder(
		report.Config{},
		report.WithConsole(&bytes.Buffer{}),
		report.WithClock(fixedClock),
	)
	assert.NoError(t, builder.Emit(sampleRecords()))
}

func TestEmit_UnwritablePathFails(t *testing.T) {
	t.Parallel()

	builder := report.NewBuilder(
		report.Config{OutputPath: filepath.Join(t.TempDir(), "missing", "usage.csv")},
		report.WithConsole(&bytes.Buffer{}),
		report.WithClock(fixedClock),
	)
	err := builder.Emit(sampleRecords())
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	records := append(sampleRecords(), swift.AccountUsage{
		Tenant: swift.Tenant{Name: "broken"},
		Err:    errors.New("boom"),
	})
	totals := report.Summarize(records)
	assert.Equal(t, 3, totals.Tenants)
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, uint64(3584), totals.Bytes)
	assert.Equal(t, uint64(15), totals.Objects)
	assert.Equal(t, 2, totals.Policies)
}
