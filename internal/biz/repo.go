package biz

import (
	"context"
	"time"

	"MediConnect/internal/data"
	"MediConnect/internal/model"
	"MediConnect/pkg/breaker"
	"MediConnect/pkg/insurance"
)

// AppointmentRepo defines the appointment repository interface.
// Interfaces live in biz; the implementation is data.AppointmentRepo.
type AppointmentRepo interface {
	Create(ctx context.Context, a *data.Appointment) error
	Get(ctx context.Context, id string) (*data.Appointment, error)
	UpdateStatus(ctx context.Context, id string, change data.StatusChange) error
	MarkInsuranceVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByPatient(ctx context.Context, patientID string) ([]*data.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*data.Appointment, error)
	ListUpcoming(ctx context.Context, patientID string, from, to time.Time) ([]*data.Appointment, error)
}

// PatientRepo reaches the patient service.
type PatientRepo interface {
	Exists(ctx context.Context, patientID string) error
	GetProfile(ctx context.Context, patientID string) (*data.PatientProfile, error)
}

// DoctorRepo reaches the doctor service.
type DoctorRepo interface {
	Exists(ctx context.Context, doctorID string) error
}

// InsuranceRepo calls the insurance eligibility API without any protection.
type InsuranceRepo interface {
	Verify(ctx context.Context, patientID, policyNumber string) (*insurance.Result, error)
}

// CircuitBreaker guards the insurance API.
type CircuitBreaker interface {
	Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
	Stats() breaker.Snapshot
}

// AuditLogger records the appointment lifecycle. Implementations must not block.
type AuditLogger interface {
	LogAppointmentCreated(ctx context.Context, appt *data.Appointment)
	LogStatusChanged(ctx context.Context, appointmentID string, from, to data.AppointmentStatus, reason *string)
	LogAppointmentDeleted(ctx context.Context, appointmentID string)
	LogInsuranceVerified(ctx context.Context, appointmentID string, verified bool, eligibilityStatus string)
}

// TokenVerifier resolves a bearer token to a principal.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*model.Principal, error)
}
