// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"strconv"
	"strings"
)

// Storage policy usage appears in account metadata as
//
//	x-account-storage-policy-<policy>-bytes-used: 1024
//	x-account-storage-policy-<policy>-object-count: 7
//
// with the fixed parts matched case-insensitively and <policy> taken
// verbatim from the bag.
const (
	policyPrefix      = "x-account-storage-policy-"
	policySuffixBytes = "-bytes-used"
	policySuffixCount = "-object-count"
)

// ParsePolicies extracts per-policy usage from a raw account metadata bag.
// Keys that do not match the policy pattern, or whose values do not parse
// as unsigned integers, are skipped silently. It never fails.
func ParsePolicies(meta map[string]string) map[string]PolicyUsage {
	policies := make(map[string]PolicyUsage)

	for key, value := range meta {
		lower := strings.ToLower(key)
		if !strings.HasPrefix(lower, policyPrefix) {
			continue
		}

		var suffix string
		switch {
		case strings.HasSuffix(lower, policySuffixBytes):
			suffix = policySuffixBytes
		case strings.HasSuffix(lower, policySuffixCount):
			suffix = policySuffixCount
		default:
			continue
		}

		// Prefix and suffix may overlap in a degenerate key such as
		// "x-account-storage-policy-bytes-used"; that leaves no room
		// for a policy name and must not slice out of bounds.
		if len(key)-len(suffix) <= len(policyPrefix) {
			continue
		}
		name := key[len(policyPrefix) : len(key)-len(suffix)]

		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}

		usage := policies[name]
		if suffix == policySuffixBytes {
			usage.BytesUsed = n
		} else {
			usage.ObjectCount = n
		}
		policies[name] = usage
	}

	return policies
}
