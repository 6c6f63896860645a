// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"strconv"
)

// Human rendering picks the largest unit whose threshold the value strictly
// exceeds and formats to two decimals. Values at or below every threshold
// render as a bare integer ("0 B", "999").

var byteUnits = []struct {
	threshold uint64
	suffix    string
}{
	{1 << 60, "EiB"},
	{1 << 50, "PiB"},
	{1 << 40, "TiB"},
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
}

var countUnits = []struct {
	threshold uint64
	suffix    string
}{
	{1e18, "E"},
	{1e15, "P"},
	{1e12, "T"},
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "K"},
}

// FormatBytes renders a byte quantity with binary prefixes: 1536 -> "1.50 KiB".
func FormatBytes(v uint64) string {
	for _, u := range byteUnits {
		if v > u.threshold {
			return fmt.Sprintf("%.2f %s", float64(v)/float64(u.threshold), u.suffix)
		}
	}
	return fmt.Sprintf("%d B", v)
}

// FormatCount renders an object/container count with SI prefixes: 2500 -> "2.50K".
func FormatCount(v uint64) string {
	for _, u := range countUnits {
		if v > u.threshold {
			return fmt.Sprintf("%.2f%s", float64(v)/float64(u.threshold), u.suffix)
		}
	}
	return strconv.FormatUint(v, 10)
}

// FormatQuota renders a quota. The unset sentinel stays "-1" in both modes
// so it can never be read as a legitimate zero-byte quota; any other
// negative value renders raw rather than wrapping through uint64.
func FormatQuota(q int64, human bool) string {
	if q < 0 {
		return strconv.FormatInt(q, 10)
	}
	if human {
		return FormatBytes(uint64(q))
	}
	return strconv.FormatInt(q, 10)
}
