package data

import (
	"context"
	"fmt"

	"MediConnect/internal/conf"
	"MediConnect/pkg/remote"

	"github.com/go-kratos/kratos/v2/log"
)

// PatientProfile is the subset of the patient record this service reads.
type PatientProfile struct {
	ID                    string `json:"id"`
	InsurancePolicyNumber string `json:"insurancePolicyNumber"`
}

// PatientRepo looks patients up in the patient service.
type PatientRepo struct {
	checker *remote.Checker
	baseURL string
	logger  *log.Helper
}

// NewPatientRepo creates a patient repository against {services.patient.url}/api/patients.
func NewPatientRepo(c *conf.Services, logger log.Logger) (*PatientRepo, error) {
	if c == nil || c.Patient == nil {
		return nil, fmt.Errorf("patient service configuration is required")
	}
	client, err := remote.NewHTTPClient(c.ProxyURL, c.Patient.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient service client: %w", err)
	}
	return &PatientRepo{
		checker: remote.NewChecker(client),
		baseURL: c.Patient.Url + "/api/patients",
		logger:  log.NewHelper(log.With(logger, "module", "data/patient")),
	}, nil
}

// Exists fails when the patient service does not confirm the patient.
func (r *PatientRepo) Exists(ctx context.Context, patientID string) error {
	if err := r.checker.Exists(ctx, r.baseURL, patientID); err != nil {
		r.logger.Debugw("msg", "patient lookup failed", "patient_id", patientID, "error", err)
		return err
	}
	return nil
}

// GetProfile fetches the patient record.
func (r *PatientRepo) GetProfile(ctx context.Context, patientID string) (*PatientProfile, error) {
	var p PatientProfile
	if err := r.checker.Fetch(ctx, r.baseURL, patientID, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = patientID
	}
	return &p, nil
}
