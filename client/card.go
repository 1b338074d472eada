// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/agentwire/agentwire"
)

// ResolveCard fetches the agent card under baseURL. It tries the
// well-known path first and falls back to the pre-0.3 agent.json
// location for older servers.
func ResolveCard(ctx context.Context, hc *http.Client, baseURL string) (*agentwire.AgentCard, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	base := strings.TrimRight(baseURL, "/")

	var lastErr error
	for _, path := range []string{agentwire.AgentCardWellKnownPath, agentwire.AgentCardLegacyPath} {
		card, err := fetchCard(ctx, hc, base+path)
		if err == nil {
			return card, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrAgentCardNotFound, lastErr)
}

func fetchCard(ctx context.Context, hc *http.Client, url string) (*agentwire.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	var card agentwire.AgentCard
	if err := json.UnmarshalRead(resp.Body, &card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	return &card, nil
}
