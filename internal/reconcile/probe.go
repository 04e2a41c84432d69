package reconcile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Prober chequea una vez si el target responde. nil = alcanzable.
type Prober interface {
	Probe(ctx context.Context, target string) error
}

// HTTPProbe hace GET al target y acepta cualquier 2xx.
type HTTPProbe struct {
	client *http.Client
}

// NewHTTPProbe crea un probe con timeout por intento.
func NewHTTPProbe(timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProbe{client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProbe) Probe(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalizeTarget(target), nil)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe: status %d", resp.StatusCode)
	}
	return nil
}

// normalizeTarget agrega http:// a targets sin esquema (ej. "agent.holohost.net").
func normalizeTarget(t string) string {
	t = strings.TrimSpace(t)
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "http://" + strings.TrimSuffix(t, "/") + "/"
}
