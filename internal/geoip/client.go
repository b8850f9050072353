// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

// Package geoip provides best-effort IP geolocation for session enrichment.
//
// Lookups are never load-bearing: a missing API token, a timeout, or a
// malformed response all yield an absent record, and callers treat that as
// "enrichment omitted", never as failure of the primary operation.
package geoip

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Lookup timeouts and retry budget. Each attempt gets its own deadline so a
// slow upstream cannot stall session creation.
const (
	attemptTimeout = 3 * time.Second
	maxRetries     = 2
	responseLimit  = 1 << 16 // 64 KiB cap on response bodies
)

// Record is the flat geolocation snapshot attached to a session. The zero
// value means "no enrichment". All fields are optional.
type Record struct {
	Hostname string `json:"hostname,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"`
	Org      string `json:"org,omitempty"`
	Postal   string `json:"postal,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// IsZero reports whether the record carries no data.
func (r Record) IsZero() bool {
	return r == Record{}
}

// Lookup resolves an IP address to a geolocation record.
type Lookup interface {
	// Lookup returns the record for ip, or the zero record when the
	// lookup is not possible (no credentials, private address, upstream
	// failure). An error is returned only for diagnostics; callers must
	// treat it as "enrichment omitted".
	Lookup(ctx context.Context, ip string) (Record, error)
}

// Client queries an ipinfo-style HTTP endpoint.
type Client struct {
	endpoint string
	token    string
	httpc    *http.Client
}

// NewClient creates a geolocation client. An empty token disables lookups
// entirely: Lookup returns the zero record rather than failing callers.
func NewClient(endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = "https://ipinfo.io"
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpc:    &http.Client{Timeout: attemptTimeout},
	}
}

// Lookup implements Lookup with bounded retries and per-attempt timeouts.
func (c *Client) Lookup(ctx context.Context, ip string) (Record, error) {
	if c.token == "" || ip == "" {
		return Record{}, nil
	}

	var record Record
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		rec, err := c.fetch(ctx, ip)
		if err != nil {
			return retry.RetryableError(err)
		}
		record = rec
		return nil
	})
	if err != nil {
		// The failed attempt carries its own code (bad status, read, parse).
		return Record{}, oops.In("geoip").
			With("ip", ip).
			Wrap(err)
	}
	return record, nil
}

func (c *Client) fetch(ctx context.Context, ip string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	reqURL := c.endpoint + "/" + url.PathEscape(ip) + "?token=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Record{}, oops.Code("GEOIP_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Record{}, oops.Code("GEOIP_REQUEST_FAILED").Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return Record{}, oops.Code("GEOIP_BAD_STATUS").
			With("status", resp.StatusCode).
			Errorf("unexpected status from geolocation endpoint")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		return Record{}, oops.Code("GEOIP_READ_FAILED").Wrap(err)
	}

	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return Record{}, oops.Code("GEOIP_DECODE_FAILED").Wrap(err)
	}
	return record, nil
}

// Compile-time interface check.
var _ Lookup = (*Client)(nil)

// Disabled is a Lookup that always returns the zero record. Used when
// geolocation is not configured.
type Disabled struct{}

// Lookup always returns the zero record.
func (Disabled) Lookup(_ context.Context, _ string) (Record, error) {
	return Record{}, nil
}

// Compile-time interface check.
var _ Lookup = Disabled{}
