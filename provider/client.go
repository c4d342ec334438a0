// Package provider talks to the external identity provider's admin API
// to mint one-time login links ("action links") for synthetic identities.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
)

const (
	generateLinkPath = "/admin/generate_link"
	adminTokenTTL    = 5 * time.Minute
	maxResponseBytes = 1 << 20
)

// Link types tried, in order. When magiclink yields nothing the provider
// may still accept a signup link for a not-yet-registered identity.
var linkTypes = []string{"magiclink", "signup"}

// Client calls the provider's generate-link capability. It authenticates
// either with a static service key or, when a JWT secret is configured,
// with a short-lived HS256 admin token minted per call.
type Client struct {
	baseURL    string
	serviceKey string
	jwtSecret  string
	http       *http.Client
	nowTime    func() time.Time
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates a provider client. It returns ErrProviderNotConfigured when
// the base URL or both credentials are missing, so callers never reach
// the provider with empty credentials.
func New(baseURL, serviceKey, jwtSecret string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, autherrors.ErrProviderNotConfigured
	}
	if serviceKey == "" && jwtSecret == "" {
		return nil, autherrors.ErrProviderNotConfigured
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		jwtSecret:  jwtSecret,
		http:       &http.Client{Timeout: 10 * time.Second},
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// GenerateLink asks the provider for a one-time login link for email.
// Provider-level failures are logged and collapse to ""; the caller
// decides how to surface them.
func (c *Client) GenerateLink(ctx context.Context, email, redirectTo string) string {
	for _, linkType := range linkTypes {
		link, err := c.generate(ctx, linkType, email, redirectTo)
		if err != nil {
			log.Warn().Err(err).Str("type", linkType).Str("email", email).Msg("provider link generation failed")
			continue
		}
		if link != "" {
			return link
		}
		log.Debug().Str("type", linkType).Str("email", email).Msg("provider returned no usable link")
	}
	return ""
}

func (c *Client) generate(ctx context.Context, linkType, email, redirectTo string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"type":        linkType,
		"email":       email,
		"redirect_to": redirectTo,
	})
	if err != nil {
		return "", errors.Wrap(err, "[Client.generate] marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateLinkPath, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "[Client.generate] build request")
	}

	token, err := c.adminToken()
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "[Client.generate] do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, "[Client.generate] read response")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Errorf("[Client.generate] provider returned status %d", resp.StatusCode)
	}
	return extractActionLink(body), nil
}

// adminToken returns the bearer credential: a short-lived HS256 admin
// JWT when the secret is configured, else the static service key.
func (c *Client) adminToken() (string, error) {
	if c.jwtSecret == "" {
		return c.serviceKey, nil
	}
	now := c.nowTime()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "supabase_admin",
		"iat":  now.Unix(),
		"exp":  now.Add(adminTokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(c.jwtSecret))
	if err != nil {
		return "", errors.Wrap(err, "[Client.adminToken] sign admin token")
	}
	return signed, nil
}
