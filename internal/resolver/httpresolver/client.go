// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpresolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/policystack/policystack/internal/conflict"
)

// Client posts a ConflictReport to a review service and long-polls it
// for a completed resolution.
type Client struct {
	BaseURL      string
	Secret       []byte
	HTTP         *http.Client
	PollInterval time.Duration
}

// NewClient builds a Client against baseURL, authenticating with
// secret.
func NewClient(baseURL string, secret []byte) *Client {
	return &Client{
		BaseURL:      baseURL,
		Secret:       secret,
		HTTP:         http.DefaultClient,
		PollInterval: 2 * time.Second,
	}
}

// Resolve implements internal/apply.Resolve: it submits report under
// a review ID derived from its element and from/to versions, then
// polls until the review service reports a fully resolved report or
// ctx is done.
func (c *Client) Resolve(ctx context.Context, report *conflict.Report) (*conflict.Report, error) {
	id := reviewID(report)
	if err := c.submit(ctx, id, report); err != nil {
		return nil, fmt.Errorf("httpresolver: submit review %s: %w", id, err)
	}

	interval := c.pollInterval()
	for {
		resolved, err := c.poll(ctx, id, report.Element)
		if err != nil {
			return nil, fmt.Errorf("httpresolver: poll review %s: %w", id, err)
		}
		if resolved != nil {
			return resolved, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return 2 * time.Second
}

func reviewID(report *conflict.Report) string {
	return fmt.Sprintf("%s-%s-%s", report.Element, report.FromVersion, report.ToVersion)
}

func (c *Client) do(ctx context.Context, method, path, element string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	token, err := GenerateToken(c.Secret, element, time.Now().Add(time.Hour))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeReport)
	}
	return c.HTTP.Do(req)
}

func (c *Client) submit(ctx context.Context, id string, report *conflict.Report) error {
	data, err := report.Marshal()
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/reviews/"+id, report.Element, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, b)
	}
	return nil
}

// poll returns a non-nil report once the review is resolved, or nil
// with no error if it is still pending.
func (c *Client) poll(ctx context.Context, id, element string) (*conflict.Report, error) {
	resp, err := c.do(ctx, http.MethodGet, "/reviews/"+id, element, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return conflict.Unmarshal(data)
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, b)
	}
}
