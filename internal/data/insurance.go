package data

import (
	"context"
	"fmt"

	"MediConnect/internal/conf"
	"MediConnect/pkg/breaker"
	"MediConnect/pkg/insurance"
	"MediConnect/pkg/remote"

	"github.com/go-kratos/kratos/v2/log"
)

// InsuranceBreakerName identifies the insurance circuit in logs, Redis and health checks.
const InsuranceBreakerName = "insurance"

// InsuranceRepo calls the insurance eligibility API.
type InsuranceRepo struct {
	client *insurance.Client
}

// NewInsuranceRepo creates the insurance API repository. The HTTP client
// timeout is a backstop; the breaker call timeout is the effective bound.
func NewInsuranceRepo(c *conf.Insurance, s *conf.Services) (*InsuranceRepo, error) {
	if c == nil {
		return nil, fmt.Errorf("insurance configuration is required")
	}
	timeout := breaker.DefaultConfig().CallTimeout
	if c.Breaker != nil && c.Breaker.CallTimeout > 0 {
		timeout = c.Breaker.CallTimeout
	}
	proxyURL := ""
	if s != nil {
		proxyURL = s.ProxyURL
	}

	httpClient, err := remote.NewHTTPClient(proxyURL, 2*timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create insurance client: %w", err)
	}
	return &InsuranceRepo{
		client: insurance.NewClient(c.ApiUrl, c.ApiKey, httpClient),
	}, nil
}

// Verify forwards to the insurance API.
func (r *InsuranceRepo) Verify(ctx context.Context, patientID, policyNumber string) (*insurance.Result, error) {
	return r.client.Verify(ctx, patientID, policyNumber)
}

// NewInsuranceBreaker builds the single breaker guarding the insurance API and
// subscribes the Redis mirror and the audit trail to its transitions.
func NewInsuranceBreaker(c *conf.Insurance, mirror *CircuitStateRepo, audit *AuditLogger, logger log.Logger) *breaker.Breaker {
	br := breaker.New(InsuranceBreakerName, insuranceBreakerConfig(c), logger)
	if mirror != nil {
		br.Subscribe(mirror)
	}
	if audit != nil {
		br.Subscribe(audit)
	}
	return br
}

// insuranceBreakerConfig overlays the configured breaker fields on
// breaker.DefaultConfig. Unset fields keep their defaults.
func insuranceBreakerConfig(c *conf.Insurance) breaker.Config {
	cfg := breaker.DefaultConfig()
	if c == nil || c.Breaker == nil {
		return cfg
	}
	b := c.Breaker
	if b.CallTimeout > 0 {
		cfg.CallTimeout = b.CallTimeout
	}
	if b.FailureThreshold > 0 {
		cfg.FailureThreshold = b.FailureThreshold
	}
	if b.ResetTimeout > 0 {
		cfg.ResetTimeout = b.ResetTimeout
	}
	if b.RollingWindow > 0 {
		cfg.RollingWindow = b.RollingWindow
	}
	if b.VolumeThreshold > 0 {
		cfg.VolumeThreshold = b.VolumeThreshold
	}
	if b.HalfOpenMaxRequests > 0 {
		cfg.HalfOpenMaxRequests = b.HalfOpenMaxRequests
	}
	return cfg
}
