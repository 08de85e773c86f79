// Package recaptcha verifies reCAPTCHA tokens submitted with API requests.
package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

var (
	ErrMissingSecret = errors.New("recaptcha secret key not set")
	ErrVerifyFailed  = errors.New("recaptcha verification failed")
)

type Config struct {
	SecretKey string
	Endpoint  string
	Timeout   time.Duration
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

type Verifier struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Verifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	return &Verifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify reports whether token was accepted by the siteverify endpoint.
// An error means the answer could not be obtained.
func (v *Verifier) Verify(ctx context.Context, token string) (bool, error) {
	const op = "adapter.recaptcha.Verifier.Verify"

	if v.cfg.SecretKey == "" {
		return false, fmt.Errorf("%s: %w: %w", op, ErrVerifyFailed, ErrMissingSecret)
	}

	form := url.Values{}
	form.Set("secret", v.cfg.SecretKey)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%s: %w: failed to build request: %w", op, ErrVerifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w: request failed: %w", op, ErrVerifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%s: %w: unexpected status %d", op, ErrVerifyFailed, resp.StatusCode)
	}

	var res verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, fmt.Errorf("%s: %w: failed to decode response: %w", op, ErrVerifyFailed, err)
	}

	return res.Success, nil
}

// Nop accepts every token. It is used when captcha checks are disabled.
type Nop struct{}

func (Nop) Verify(context.Context, string) (bool, error) {
	return true, nil
}
