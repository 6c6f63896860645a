// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

// Package swift talks to Swift-compatible object storage accounts and
// normalizes their metadata into per-tenant usage records.
package swift

// Tenant is one isolated billing unit (an OpenStack project) together with
// the URL of its storage account. Tenants are listed once per run and are
// immutable afterwards.
type Tenant struct {
	ID         string
	Name       string
	StorageURL string
}

// PolicyUsage is the usage recorded under a single storage policy.
type PolicyUsage struct {
	BytesUsed   uint64
	ObjectCount uint64
}

// AccountUsage is the normalized result of probing one tenant's storage
// account. Exactly one is produced per tenant per run.
//
// QuotaBytes is -1 when the account has no quota configured; callers must
// not conflate that with an explicit zero-byte quota.
// A non-nil Err marks the probe as failed; the numeric fields are zero and
// the record still counts toward run completion.
type AccountUsage struct {
	Tenant         Tenant
	BytesUsed      uint64
	ContainerCount uint64
	ObjectCount    uint64
	QuotaBytes     int64
	Policies       map[string]PolicyUsage
	Err            error
}

// Failed reports whether the probe for this record errored.
func (u AccountUsage) Failed() bool {
	return u.Err != nil
}
