// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"context"
	"strconv"
	"strings"

	"github.com/stackwatch/swiftmeter/pkg/logger"
)

// Well-known account metadata keys. Matched case-insensitively because the
// bag carries whatever casing the transport delivered.
const (
	hdrBytesUsed      = "x-account-bytes-used"
	hdrContainerCount = "x-account-container-count"
	hdrObjectCount    = "x-account-object-count"
	hdrQuotaBytes     = "x-account-meta-quota-bytes"
)

// QuotaUnset is the QuotaBytes value for accounts without a configured quota.
const QuotaUnset int64 = -1

// Prober turns one tenant into one AccountUsage. Implementations must be
// safe for concurrent use by multiple workers.
type Prober interface {
	Probe(ctx context.Context, tenant Tenant) (AccountUsage, error)
}

// AccountProber probes tenants through a shared AccountClient using a token
// obtained once per run. The token is read-only shared state.
type AccountProber struct {
	client *AccountClient
	token  string
}

var _ Prober = (*AccountProber)(nil)

// NewAccountProber creates a prober bound to one run's auth token.
func NewAccountProber(client *AccountClient, token string) *AccountProber {
	return &AccountProber{client: client, token: token}
}

// Probe queries the tenant's account metadata and normalizes it. The error,
// if any, is scoped to this tenant only.
func (p *AccountProber) Probe(ctx context.Context, tenant Tenant) (AccountUsage, error) {
	meta, err := p.client.Head(ctx, tenant.StorageURL, p.token)
	if err != nil {
		return AccountUsage{}, err
	}

	usage := BuildUsage(tenant, meta)
	logger.Ctx(ctx).Debug().
		Str("tenant", tenant.Name).
		Uint64("bytes", usage.BytesUsed).
		Uint64("objects", usage.ObjectCount).
		Int("policies", len(usage.Policies)).
		Msg("probed account")
	return usage, nil
}

// BuildUsage assembles an AccountUsage from a raw metadata bag. Counters
// default to zero when absent; the quota defaults to QuotaUnset so callers
// can tell "no quota" from an explicit zero-byte quota.
func BuildUsage(tenant Tenant, meta map[string]string) AccountUsage {
	return AccountUsage{
		Tenant:         tenant,
		BytesUsed:      metaUint(meta, hdrBytesUsed),
		ContainerCount: metaUint(meta, hdrContainerCount),
		ObjectCount:    metaUint(meta, hdrObjectCount),
		QuotaBytes:     metaQuota(meta),
		Policies:       ParsePolicies(meta),
	}
}

func metaValue(meta map[string]string, key string) (string, bool) {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func metaUint(meta map[string]string, key string) uint64 {
	raw, ok := metaValue(meta, key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func metaQuota(meta map[string]string) int64 {
	raw, ok := metaValue(meta, hdrQuotaBytes)
	if !ok {
		return QuotaUnset
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return QuotaUnset
	}
	return n
}
