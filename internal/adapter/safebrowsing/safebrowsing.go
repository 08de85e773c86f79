// Package safebrowsing checks URLs against the Google Safe Browsing v4 Lookup API.
package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const DefaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

var ErrMissingAPIKey = errors.New("safe browsing api key not set")

type Config struct {
	APIKey        string
	Endpoint      string
	ClientID      string
	ClientVersion string
	Timeout       time.Duration
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type findResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// Checker is a client of the threatMatches:find endpoint.
type Checker struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Checker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	return &Checker{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Check looks url up. A response listing matches makes the URL unsafe and
// the whole response becomes the verdict details. Every failure is reported
// as entity.ErrSafetyCheck; it is never treated as a safe verdict.
func (c *Checker) Check(ctx context.Context, url string) (entity.SafetyVerdict, error) {
	const op = "adapter.safebrowsing.Checker.Check"

	if c.cfg.APIKey == "" {
		return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: %w", op, entity.ErrSafetyCheck, ErrMissingAPIKey)
	}

	body, err := json.Marshal(findRequest{
		Client: clientInfo{
			ClientID:      c.cfg.ClientID,
			ClientVersion: c.cfg.ClientVersion,
		},
		ThreatInfo: threatInfo{
			ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING"},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []threatEntry{{URL: url}},
		},
	})
	if err != nil {
		return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: failed to encode request: %w", op, entity.ErrSafetyCheck, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: failed to build request: %w", op, entity.ErrSafetyCheck, err)
	}

	q := req.URL.Query()
	q.Set("key", c.cfg.APIKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: request failed: %w", op, entity.ErrSafetyCheck, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: failed to read response: %w", op, entity.ErrSafetyCheck, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: unexpected status %d", op, entity.ErrSafetyCheck, resp.StatusCode)
	}

	var res findResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &res); err != nil {
			return entity.SafetyVerdict{}, fmt.Errorf("%s: %w: failed to decode response: %w", op, entity.ErrSafetyCheck, err)
		}
	}

	if len(res.Matches) == 0 {
		return entity.SafetyVerdict{IsSafe: true}, nil
	}

	return entity.SafetyVerdict{IsSafe: false, Details: json.RawMessage(raw)}, nil
}
