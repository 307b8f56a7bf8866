package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxBody = 1 << 20 // 1 MB

// Request wraps *http.Request with body binding.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the request body into v: YAML for application/yaml and
// text/yaml, JSON otherwise.
func (req *Request) Bind(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.raw.Body, maxBody))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if req.IsYAML() {
		if err := yaml.Unmarshal(body, v); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ── Input ────────────────────────────────────────────────────────────────────

// Query returns a query string value, or the fallback.
func (req *Request) Query(key string, fallback ...string) string {
	if v := req.raw.URL.Query().Get(key); v != "" {
		return v
	}
	return first(fallback, "")
}

// RouteParam returns a chi URL parameter.
func (req *Request) RouteParam(key string) string {
	return Param(req.raw, key)
}

// ContentType returns the Content-Type header.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsYAML reports whether the body is declared as YAML.
func (req *Request) IsYAML() bool {
	ct := req.ContentType()
	return strings.Contains(ct, "application/yaml") ||
		strings.Contains(ct, "application/x-yaml") ||
		strings.Contains(ct, "text/yaml")
}
