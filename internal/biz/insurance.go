package biz

import (
	"context"
	"errors"

	"MediConnect/pkg/breaker"
	"MediConnect/pkg/insurance"

	"github.com/go-kratos/kratos/v2/log"
)

// InsuranceVerificationResult is the outcome of one eligibility check.
// Only Verified is folded into the appointment.
type InsuranceVerificationResult struct {
	Verified          bool    `json:"verified"`
	EligibilityStatus string  `json:"eligibilityStatus"`
	CoverageDetails   *string `json:"coverageDetails,omitempty"`
}

// InsuranceVerifier checks eligibility through the insurance circuit breaker.
type InsuranceVerifier struct {
	repo    InsuranceRepo
	breaker CircuitBreaker
	logger  *log.Helper
}

// NewInsuranceVerifier creates a new insurance verifier.
func NewInsuranceVerifier(repo InsuranceRepo, cb CircuitBreaker, logger log.Logger) *InsuranceVerifier {
	return &InsuranceVerifier{
		repo:    repo,
		breaker: cb,
		logger:  log.NewHelper(log.With(logger, "module", "biz/insurance")),
	}
}

// failedVerification is returned whenever the API could not give an answer.
func failedVerification() *InsuranceVerificationResult {
	return &InsuranceVerificationResult{
		Verified:          false,
		EligibilityStatus: insurance.StatusVerificationFailed,
	}
}

// VerifyEligibility never fails: breaker rejections, timeouts and API errors
// all yield a VERIFICATION_FAILED result.
func (v *InsuranceVerifier) VerifyEligibility(ctx context.Context, patientID, policyNumber string) *InsuranceVerificationResult {
	out, err := v.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return v.repo.Verify(ctx, patientID, policyNumber)
	})
	if err != nil {
		v.logger.Warnw("msg", "insurance verification failed, continuing without it",
			"patient_id", patientID,
			"reason", failureReason(err),
			"error", err)
		return failedVerification()
	}

	res, ok := out.(*insurance.Result)
	if !ok || res == nil {
		v.logger.Warnw("msg", "insurance API returned no result", "patient_id", patientID)
		return failedVerification()
	}

	return &InsuranceVerificationResult{
		Verified:          res.Verified,
		EligibilityStatus: res.EligibilityStatus,
		CoverageDetails:   res.CoverageDetails,
	}
}

// CircuitBreakerStats returns the current breaker snapshot.
func (v *InsuranceVerifier) CircuitBreakerStats() breaker.Snapshot {
	return v.breaker.Stats()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, breaker.ErrOpen):
		return "circuit_open"
	case errors.Is(err, breaker.ErrTooManyRequests):
		return "half_open_busy"
	case errors.Is(err, breaker.ErrTimeout):
		return "timeout"
	case errors.Is(err, insurance.ErrUnexpectedStatus):
		return "api_error"
	default:
		return "request_failed"
	}
}
