package service

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"MediConnect/internal/biz"
	"MediConnect/internal/data"

	"github.com/go-playground/validator/v10"
)

// CreateAppointmentRequest is the JSON body of POST /api/appointments.
type CreateAppointmentRequest struct {
	PatientID       string  `json:"patientId" validate:"required,uuid"`
	DoctorID        string  `json:"doctorId" validate:"required,uuid"`
	ScheduledAt     string  `json:"scheduledAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes *int    `json:"durationMinutes" validate:"omitempty,gt=0"`
	ReasonForVisit  *string `json:"reasonForVisit"`
	PatientNotes    *string `json:"patientNotes"`
}

// UpdateStatusRequest is the JSON body of PATCH /api/appointments/{id}/status.
type UpdateStatusRequest struct {
	ID                 string  `json:"-"`
	Status             string  `json:"status" validate:"required,oneof=SCHEDULED CONFIRMED CANCELLED COMPLETED NO_SHOW"`
	CancellationReason *string `json:"cancellationReason"`
}

// AppointmentIDRequest addresses a single appointment.
type AppointmentIDRequest struct {
	ID string
}

// PatientRequest addresses the appointments of a patient.
type PatientRequest struct {
	PatientID string
}

// DoctorRequest addresses the appointments of a doctor.
type DoctorRequest struct {
	DoctorID string
}

// StatsRequest is the empty request of the breaker metrics endpoint.
type StatsRequest struct{}

func (r *CreateAppointmentRequest) toBiz() (*biz.CreateAppointmentRequest, error) {
	scheduledAt, err := time.Parse(time.RFC3339, r.ScheduledAt)
	if err != nil {
		return nil, biz.ErrValidation("scheduledAt must be an RFC3339 timestamp")
	}
	duration := data.DefaultDurationMinutes
	if r.DurationMinutes != nil {
		duration = *r.DurationMinutes
	}
	return &biz.CreateAppointmentRequest{
		PatientID:       r.PatientID,
		DoctorID:        r.DoctorID,
		ScheduledAt:     scheduledAt.UTC(),
		DurationMinutes: duration,
		ReasonForVisit:  r.ReasonForVisit,
		PatientNotes:    r.PatientNotes,
	}, nil
}

func (r *UpdateStatusRequest) toBiz() *biz.UpdateStatusRequest {
	return &biz.UpdateStatusRequest{
		Status:             data.AppointmentStatus(r.Status),
		CancellationReason: r.CancellationReason,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns a validator failure into a VALIDATION_ERROR.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return biz.ErrValidation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" "+describeTag(fe))
	}
	return biz.ErrValidation(strings.Join(msgs, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "datetime":
		return "must be an RFC3339 timestamp"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
