package biz

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"MediConnect/internal/conf"
	"MediConnect/internal/data"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultPreconditionTimeout = 10 * time.Second
	defaultVerificationTimeout = 30 * time.Second
	defaultUpcomingWindow      = 90 * 24 * time.Hour
)

// CreateAppointmentRequest is a validated booking request.
type CreateAppointmentRequest struct {
	PatientID       string
	DoctorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	ReasonForVisit  *string
	PatientNotes    *string
}

// UpdateStatusRequest moves an appointment to Status. CancellationReason is
// only stored for CANCELLED.
type UpdateStatusRequest struct {
	Status             data.AppointmentStatus
	CancellationReason *string
}

// CircuitBreakerStats is the administrative view of the insurance breaker.
type CircuitBreakerStats struct {
	State        string      `json:"state"`
	Stats        interface{} `json:"stats"`
	LastOpenedAt *time.Time  `json:"lastOpenedAt,omitempty"`
}

// AppointmentUsecase orchestrates appointment creation and lifecycle.
//
// Creation blocks on the patient and doctor checks, persists the record and
// then verifies insurance in a detached goroutine whose outcome never reaches
// the caller.
type AppointmentUsecase struct {
	repo      AppointmentRepo
	patients  PatientRepo
	doctors   DoctorRepo
	insurance *InsuranceVerifier
	audit     AuditLogger
	logger    *pkglog.LogHelper

	preconditionTimeout time.Duration
	verificationTimeout time.Duration
	upcomingWindow      time.Duration

	now func() time.Time
	bg  sync.WaitGroup
}

// NewAppointmentUsecase creates a new appointment usecase. The cleanup waits
// for in-flight insurance verifications.
func NewAppointmentUsecase(
	c *conf.Appointment,
	repo AppointmentRepo,
	patients PatientRepo,
	doctors DoctorRepo,
	verifier *InsuranceVerifier,
	audit AuditLogger,
	logger log.Logger,
) (*AppointmentUsecase, func()) {
	uc := &AppointmentUsecase{
		repo:                repo,
		patients:            patients,
		doctors:             doctors,
		insurance:           verifier,
		audit:               audit,
		logger:              pkglog.NewLogHelper(log.With(logger, "module", "biz/appointment")),
		preconditionTimeout: defaultPreconditionTimeout,
		verificationTimeout: defaultVerificationTimeout,
		upcomingWindow:      defaultUpcomingWindow,
		now:                 time.Now,
	}
	if c != nil {
		if c.PreconditionTimeout > 0 {
			uc.preconditionTimeout = c.PreconditionTimeout
		}
		if c.VerificationTimeout > 0 {
			uc.verificationTimeout = c.VerificationTimeout
		}
		if c.UpcomingWindow > 0 {
			uc.upcomingWindow = c.UpcomingWindow
		}
	}

	cleanup := func() {
		uc.logger.Info("waiting for background insurance verifications")
		uc.Wait()
	}
	return uc, cleanup
}

// Wait blocks until every detached verification has finished.
func (uc *AppointmentUsecase) Wait() {
	uc.bg.Wait()
}

// CreateAppointment books an appointment after confirming that the patient
// and the doctor exist. Insurance is verified afterwards in the background.
func (uc *AppointmentUsecase) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*data.Appointment, error) {
	if err := uc.checkParticipants(ctx, req.PatientID, req.DoctorID); err != nil {
		return nil, err
	}

	appt := &data.Appointment{
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		ScheduledAt:       req.ScheduledAt,
		DurationMinutes:   req.DurationMinutes,
		Status:            data.StatusScheduled,
		ReasonForVisit:    req.ReasonForVisit,
		PatientNotes:      req.PatientNotes,
		InsuranceVerified: false,
	}
	if err := uc.repo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	uc.logger.Appointment("appointment created",
		"appointment_id", appt.ID,
		"patient_id", appt.PatientID,
		"doctor_id", appt.DoctorID,
		"scheduled_at", appt.ScheduledAt)
	uc.audit.LogAppointmentCreated(ctx, appt)

	uc.verifyInsuranceAsync(appt.ID, appt.PatientID)

	return appt, nil
}

// checkParticipants runs the patient check, then the doctor check, under one deadline.
func (uc *AppointmentUsecase) checkParticipants(ctx context.Context, patientID, doctorID string) error {
	ctx, cancel := context.WithTimeout(ctx, uc.preconditionTimeout)
	defer cancel()

	if err := uc.patients.Exists(ctx, patientID); err != nil {
		uc.logger.Warnw("msg", "patient check failed", "patient_id", patientID, "error", err)
		return ErrPatientNotFound.WithCause(err)
	}
	if err := uc.doctors.Exists(ctx, doctorID); err != nil {
		uc.logger.Warnw("msg", "doctor check failed", "doctor_id", doctorID, "error", err)
		return ErrDoctorNotFound.WithCause(err)
	}
	return nil
}

// verifyInsuranceAsync detaches the insurance check from the request. It owns
// its context and recovers its own panics.
func (uc *AppointmentUsecase) verifyInsuranceAsync(appointmentID, patientID string) {
	uc.bg.Add(1)
	go func() {
		defer uc.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				uc.logger.Errorw("msg", "panic in insurance verification",
					"appointment_id", appointmentID,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), uc.verificationTimeout)
		defer cancel()
		uc.verifyInsurance(ctx, appointmentID, patientID)
	}()
}

func (uc *AppointmentUsecase) verifyInsurance(ctx context.Context, appointmentID, patientID string) {
	profile, err := uc.patients.GetProfile(ctx, patientID)
	if err != nil {
		uc.logger.Errorw("msg", "insurance verification skipped: patient profile unavailable",
			"appointment_id", appointmentID,
			"patient_id", patientID,
			"error", err)
		return
	}
	if profile.InsurancePolicyNumber == "" {
		uc.logger.Debugw("msg", "patient has no insurance policy", "appointment_id", appointmentID)
		return
	}

	result := uc.insurance.VerifyEligibility(ctx, patientID, profile.InsurancePolicyNumber)
	uc.audit.LogInsuranceVerified(ctx, appointmentID, result.Verified, result.EligibilityStatus)

	if !result.Verified {
		uc.logger.Insurance("insurance not verified",
			"appointment_id", appointmentID,
			"eligibility_status", result.EligibilityStatus)
		return
	}

	if err := uc.repo.MarkInsuranceVerified(ctx, appointmentID); err != nil {
		uc.logger.Errorw("msg", "failed to store insurance verification",
			"appointment_id", appointmentID,
			"error", err)
		return
	}
	uc.logger.Insurance("insurance verified", "appointment_id", appointmentID)
}

// GetAppointment returns one appointment.
func (uc *AppointmentUsecase) GetAppointment(ctx context.Context, id string) (*data.Appointment, error) {
	appt, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return appt, nil
}

// UpdateAppointmentStatus moves an appointment to any status. Cancelling
// stamps the reason and the cancellation time.
func (uc *AppointmentUsecase) UpdateAppointmentStatus(ctx context.Context, id string, req *UpdateStatusRequest) (*data.Appointment, error) {
	if !req.Status.Valid() {
		return nil, ErrValidation(fmt.Sprintf("invalid status %q", req.Status))
	}

	current, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	change := data.StatusChange{Status: req.Status}
	if req.Status == data.StatusCancelled {
		now := uc.now().UTC()
		change.CancelledAt = &now
		change.CancellationReason = req.CancellationReason
	}

	if err := uc.repo.UpdateStatus(ctx, id, change); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	updated, err := uc.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrAppointmentNotFound) {
			return nil, ErrUpdateFailed
		}
		return nil, fmt.Errorf("failed to reload appointment: %w", err)
	}

	uc.logger.Appointment("appointment status updated",
		"appointment_id", id,
		"from", current.Status,
		"to", updated.Status)
	uc.audit.LogStatusChanged(ctx, id, current.Status, updated.Status, change.CancellationReason)

	return updated, nil
}

// DeleteAppointment removes an appointment.
func (uc *AppointmentUsecase) DeleteAppointment(ctx context.Context, id string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	uc.logger.Appointment("appointment deleted", "appointment_id", id)
	uc.audit.LogAppointmentDeleted(ctx, id)
	return nil
}

// ListPatientAppointments returns a patient's appointments, earliest first.
func (uc *AppointmentUsecase) ListPatientAppointments(ctx context.Context, patientID string) ([]*data.Appointment, error) {
	return uc.repo.ListByPatient(ctx, patientID)
}

// ListDoctorAppointments returns a doctor's appointments, earliest first.
func (uc *AppointmentUsecase) ListDoctorAppointments(ctx context.Context, doctorID string) ([]*data.Appointment, error) {
	return uc.repo.ListByDoctor(ctx, doctorID)
}

// ListUpcomingAppointments returns the patient's SCHEDULED appointments in
// the upcoming window.
func (uc *AppointmentUsecase) ListUpcomingAppointments(ctx context.Context, patientID string) ([]*data.Appointment, error) {
	now := uc.now()
	return uc.repo.ListUpcoming(ctx, patientID, now, now.Add(uc.upcomingWindow))
}

// InsuranceCircuitBreakerStats reports the insurance breaker.
func (uc *AppointmentUsecase) InsuranceCircuitBreakerStats() *CircuitBreakerStats {
	snap := uc.insurance.CircuitBreakerStats()
	return &CircuitBreakerStats{
		State:        string(snap.State),
		Stats:        snap.Counts,
		LastOpenedAt: snap.LastOpenedAt,
	}
}

func mapRepoError(err error) error {
	if errors.Is(err, data.ErrAppointmentNotFound) {
		return ErrAppointmentNotFound
	}
	return err
}
