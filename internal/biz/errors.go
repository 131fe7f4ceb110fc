package biz

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// Error reasons surfaced to API clients.
const (
	ReasonPatientNotFound     = "PATIENT_NOT_FOUND"
	ReasonDoctorNotFound      = "DOCTOR_NOT_FOUND"
	ReasonAppointmentNotFound = "APPOINTMENT_NOT_FOUND"
	ReasonUpdateFailed        = "UPDATE_FAILED"
	ReasonValidation          = "VALIDATION_ERROR"
	ReasonMissingToken        = "MISSING_TOKEN"
	ReasonInvalidToken        = "INVALID_TOKEN"
	ReasonAuthFailed          = "AUTH_FAILED"
	ReasonForbidden           = "FORBIDDEN"
)

var (
	// ErrPatientNotFound aborts creation when the patient service does not confirm the patient.
	ErrPatientNotFound = errors.NotFound(ReasonPatientNotFound, "Referenced entity not found")
	// ErrDoctorNotFound aborts creation when the doctor service does not confirm the doctor.
	ErrDoctorNotFound = errors.NotFound(ReasonDoctorNotFound, "Referenced entity not found")
	// ErrAppointmentNotFound is returned for an unknown appointment id.
	ErrAppointmentNotFound = errors.NotFound(ReasonAppointmentNotFound, "Appointment not found")
	// ErrUpdateFailed means the status write went through but the record could not be read back.
	ErrUpdateFailed = errors.InternalServer(ReasonUpdateFailed, "Failed to update appointment")

	ErrMissingToken = errors.Unauthorized(ReasonMissingToken, "Authentication token is required")
	ErrInvalidToken = errors.Unauthorized(ReasonInvalidToken, "Invalid authentication token")
	ErrAuthFailed   = errors.Unauthorized(ReasonAuthFailed, "Authentication failed")
	ErrForbidden    = errors.Forbidden(ReasonForbidden, "Insufficient permissions")
)

// ErrValidation builds a 400 error carrying message.
func ErrValidation(message string) error {
	return errors.BadRequest(ReasonValidation, message)
}
