// Copyright 2025 Swiftmeter Authors
// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultProbeTimeout bounds a single account HEAD request. Because failed
// probes are isolated per tenant, this is also the bound on how long a dead
// endpoint can delay one worker.
const DefaultProbeTimeout = 30 * time.Second

// AccountClient issues HEAD requests against Swift account URLs and returns
// the raw metadata bag. Safe for concurrent use; each in-flight request
// holds its own pooled connection.
type AccountClient struct {
	http *resty.Client
}

// NewAccountClient creates an account client with the given per-request
// timeout. A zero timeout falls back to DefaultProbeTimeout.
func NewAccountClient(timeout time.Duration) *AccountClient {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &AccountClient{
		http: resty.New().SetTimeout(timeout),
	}
}

// Head performs one account-metadata query and returns the response headers
// as an unordered key/value bag. Keys keep the form they arrive in; callers
// match them case-insensitively. Any transport error or non-2xx status is a
// hard failure for this account.
func (c *AccountClient) Head(ctx context.Context, accountURL, token string) (map[string]string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Auth-Token", token).
		Head(accountURL)
	if err != nil {
		return nil, fmt.Errorf("head account %s: %w", accountURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("head account %s: unexpected status %s", accountURL, resp.Status())
	}

	meta := make(map[string]string, len(resp.Header()))
	for key, values := range resp.Header() {
		if len(values) > 0 {
			meta[key] = values[0]
		}
	}
	return meta, nil
}
