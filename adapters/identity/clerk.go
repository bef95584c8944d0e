// Package identity provides IdentityWriter implementations that push
// tier assignments to the identity provider holding user records.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Fruitloop24/metergate/ports"
)

// ClerkConfig configures the Clerk metadata writer.
type ClerkConfig struct {
	BaseURL string // default https://api.clerk.com
	APIKey  string
	Timeout time.Duration
}

// ClerkWriter writes a principal's tier into Clerk public metadata.
// The auth layer reflects that metadata into session claims, so the
// write becomes visible to the gateway on the caller's next token
// refresh. Writes are idempotent: Clerk merges metadata, and setting
// the same tier twice leaves the record unchanged.
type ClerkWriter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClerkWriter creates a Clerk-backed identity writer.
func NewClerkWriter(cfg ClerkConfig) *ClerkWriter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.clerk.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &ClerkWriter{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}
}

// SetTier writes the tier assignment for a principal.
func (w *ClerkWriter) SetTier(ctx context.Context, principal, tierID string) error {
	body, err := json.Marshal(map[string]any{
		"public_metadata": map[string]string{"tier": tierID},
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	url := fmt.Sprintf("%s/v1/users/%s/metadata", w.baseURL, principal)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("set tier for %s: %w", principal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("set tier for %s: identity provider returned %d: %s", principal, resp.StatusCode, detail)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.IdentityWriter = (*ClerkWriter)(nil)
