package data

import (
	"context"
	"fmt"

	"MediConnect/internal/conf"
	"MediConnect/pkg/remote"

	"github.com/go-kratos/kratos/v2/log"
)

// DoctorRepo looks doctors up in the doctor service.
type DoctorRepo struct {
	checker *remote.Checker
	baseURL string
	logger  *log.Helper
}

// NewDoctorRepo creates a doctor repository against {services.doctor.url}/api/doctors.
func NewDoctorRepo(c *conf.Services, logger log.Logger) (*DoctorRepo, error) {
	if c == nil || c.Doctor == nil {
		return nil, fmt.Errorf("doctor service configuration is required")
	}
	client, err := remote.NewHTTPClient(c.ProxyURL, c.Doctor.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create doctor service client: %w", err)
	}
	return &DoctorRepo{
		checker: remote.NewChecker(client),
		baseURL: c.Doctor.Url + "/api/doctors",
		logger:  log.NewHelper(log.With(logger, "module", "data/doctor")),
	}, nil
}

// Exists fails when the doctor service does not confirm the doctor.
func (r *DoctorRepo) Exists(ctx context.Context, doctorID string) error {
	if err := r.checker.Exists(ctx, r.baseURL, doctorID); err != nil {
		r.logger.Debugw("msg", "doctor lookup failed", "doctor_id", doctorID, "error", err)
		return err
	}
	return nil
}
