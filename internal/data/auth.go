package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"MediConnect/internal/conf"
	"MediConnect/internal/model"
	pkglog "MediConnect/pkg/log"
	"MediConnect/pkg/remote"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	// ErrTokenRejected means the auth service answered but did not accept the token.
	ErrTokenRejected = errors.New("auth: token rejected")
	// ErrAuthUnavailable means the auth service could not be reached.
	ErrAuthUnavailable = errors.New("auth: service unavailable")
)

// AuthRepo verifies bearer tokens against the auth service. Successful
// verifications are cached briefly, keyed by a token digest.
type AuthRepo struct {
	client    *http.Client
	verifyURL string
	cache     *expirable.LRU[string, *model.Principal]
	logger    *pkglog.LogHelper
}

// NewAuthRepo creates the token verifier for {services.auth.url}/api/auth/verify.
func NewAuthRepo(c *conf.Services, logger log.Logger) (*AuthRepo, error) {
	if c == nil || c.Auth == nil {
		return nil, fmt.Errorf("auth service configuration is required")
	}
	client, err := remote.NewHTTPClient(c.ProxyURL, c.Auth.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service client: %w", err)
	}

	size, ttl := c.TokenCacheSize, c.TokenCacheTTL
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &AuthRepo{
		client:    client,
		verifyURL: c.Auth.Url + "/api/auth/verify",
		cache:     expirable.NewLRU[string, *model.Principal](size, nil, ttl),
		logger:    pkglog.NewLogHelper(log.With(logger, "module", "data/auth")),
	}, nil
}

type verifyResponse struct {
	Success bool             `json:"success"`
	Data    *model.Principal `json:"data"`
}

// VerifyToken returns the principal for token.
func (r *AuthRepo) VerifyToken(ctx context.Context, token string) (*model.Principal, error) {
	key := tokenDigest(token)
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", remote.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warnw("msg", "auth service request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrTokenRejected
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrAuthUnavailable, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrAuthUnavailable, err)
	}
	if !body.Success || body.Data == nil || body.Data.UserID == "" {
		return nil, ErrTokenRejected
	}

	r.cache.Add(key, body.Data)
	r.logger.API("token verified by auth service", "user_id", body.Data.UserID, "role", body.Data.Role)
	return body.Data, nil
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
