package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL es ZeroTier Central.
const DefaultBaseURL = "https://my.zerotier.com/api"

// maxErrorBody limita lo que se guarda del body de un error upstream.
const maxErrorBody = 4 << 10

// ZeroTier es el cliente de la API de Central para una red.
type ZeroTier struct {
	baseURL   string
	networkID string
	token     string

	http *http.Client
}

// ZeroTierOption configura el cliente.
type ZeroTierOption func(*ZeroTier)

// WithHTTPClient reemplaza el http.Client (tests, proxies).
func WithHTTPClient(c *http.Client) ZeroTierOption {
	return func(z *ZeroTier) {
		if c != nil {
			z.http = c
		}
	}
}

// NewZeroTier crea el cliente. baseURL vacío usa DefaultBaseURL.
func NewZeroTier(baseURL, networkID, token string, timeout time.Duration, opts ...ZeroTierOption) *ZeroTier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	z := &ZeroTier{
		baseURL:   strings.TrimRight(baseURL, "/"),
		networkID: networkID,
		token:     token,
		http:      &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(z)
	}
	return z
}

type memberConfig struct {
	Authorized bool   `json:"authorized"`
	Address    string `json:"address,omitempty"`
}

type member struct {
	NodeID      string       `json:"nodeId,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Config      memberConfig `json:"config"`
}

type memberUpdate struct {
	Config      memberConfig `json:"config"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
}

func (z *ZeroTier) membersURL() string {
	return z.baseURL + "/network/" + url.PathEscape(z.networkID) + "/member"
}

func (z *ZeroTier) List(ctx context.Context) ([]Entry, error) {
	var members []member
	if err := z.do(ctx, "list", http.MethodGet, z.membersURL(), nil, &members); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(members))
	for _, m := range members {
		addr := m.NodeID
		if addr == "" {
			addr = m.Config.Address
		}
		out = append(out, Entry{
			Address:     addr,
			Name:        m.Name,
			Description: m.Description,
			Authorized:  m.Config.Authorized,
		})
	}
	return out, nil
}

func (z *ZeroTier) Authorize(ctx context.Context, address, name, description string) error {
	body := memberUpdate{
		Config:      memberConfig{Authorized: true},
		Name:        name,
		Description: description,
	}
	return z.do(ctx, "authorize", http.MethodPost, z.membersURL()+"/"+url.PathEscape(address), body, nil)
}

func (z *ZeroTier) Deauthorize(ctx context.Context, address string) error {
	body := memberUpdate{Config: memberConfig{Authorized: false}}
	err := z.do(ctx, "deauthorize", http.MethodPost, z.membersURL()+"/"+url.PathEscape(address), body, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// Ping verifica que la red exista y el token sea válido.
func (z *ZeroTier) Ping(ctx context.Context) error {
	return z.do(ctx, "ping", http.MethodGet, z.baseURL+"/network/"+url.PathEscape(z.networkID), nil, nil)
}

func (z *ZeroTier) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("directory: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("directory: %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+z.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := z.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory: %s: decode response: %w", op, err)
	}
	return nil
}
