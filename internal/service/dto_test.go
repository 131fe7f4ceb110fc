package service

import (
	"testing"
	"time"

	"MediConnect/internal/biz"
	"MediConnect/internal/data"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	patientID = "0b0f7a52-6a0e-4a3c-9d37-1c1f0c1e2a01"
	doctorID  = "5d7c2a9e-3f44-4b7e-8f0a-2b6e4c1d9a02"
)

func intPtr(i int) *int { return &i }

func TestCreateAppointmentRequest_Validation(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		req     CreateAppointmentRequest
		wantErr string
	}{
		{"valid", CreateAppointmentRequest{PatientID: patientID, DoctorID: doctorID, ScheduledAt: "2030-01-01T10:00:00Z"}, ""},
		{"fractional seconds and offset", CreateAppointmentRequest{PatientID: patientID, DoctorID: doctorID, ScheduledAt: "2030-01-01T10:00:00.250+02:00"}, ""},
		{"explicit duration", CreateAppointmentRequest{PatientID: patientID, DoctorID: doctorID, ScheduledAt: "2030-01-01T10:00:00Z", DurationMinutes: intPtr(45)}, ""},
		{"missing patient", CreateAppointmentRequest{DoctorID: doctorID, ScheduledAt: "2030-01-01T10:00:00Z"}, "patientId is required"},
		{"doctor not uuid", CreateAppointmentRequest{PatientID: patientID, DoctorID: "d-1", ScheduledAt: "2030-01-01T10:00:00Z"}, "doctorId must be a valid UUID"},
		{"date only", CreateAppointmentRequest{PatientID: patientID, DoctorID: doctorID, ScheduledAt: "2030-01-01"}, "scheduledAt must be an RFC3339 timestamp"},
		{"negative duration", CreateAppointmentRequest{PatientID: patientID, DoctorID: doctorID, ScheduledAt: "2030-01-01T10:00:00Z", DurationMinutes: intPtr(-5)}, "durationMinutes must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verr := validationError(err)
			assert.Equal(t, biz.ReasonValidation, kerrors.Reason(verr))
			assert.Contains(t, kerrors.FromError(verr).Message, tt.wantErr)
		})
	}
}

func TestCreateAppointmentRequest_ToBiz(t *testing.T) {
	reason := "follow-up"
	req := &CreateAppointmentRequest{
		PatientID:      patientID,
		DoctorID:       doctorID,
		ScheduledAt:    "2030-01-01T12:00:00+02:00",
		ReasonForVisit: &reason,
	}

	in, err := req.toBiz()
	require.NoError(t, err)
	assert.Equal(t, data.DefaultDurationMinutes, in.DurationMinutes)
	assert.True(t, in.ScheduledAt.Equal(time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, in.ScheduledAt.Location())
	assert.Equal(t, &reason, in.ReasonForVisit)

	req.DurationMinutes = intPtr(60)
	in, err = req.toBiz()
	require.NoError(t, err)
	assert.Equal(t, 60, in.DurationMinutes)
}

func TestUpdateStatusRequest_Validation(t *testing.T) {
	v := newValidator()

	assert.NoError(t, v.Struct(&UpdateStatusRequest{Status: "NO_SHOW"}))

	err := v.Struct(&UpdateStatusRequest{Status: "LATE"})
	require.Error(t, err)
	assert.Contains(t, kerrors.FromError(validationError(err)).Message,
		"status must be one of SCHEDULED, CONFIRMED, CANCELLED, COMPLETED, NO_SHOW")

	reason := "sick"
	in := (&UpdateStatusRequest{ID: "a-1", Status: "CANCELLED", CancellationReason: &reason}).toBiz()
	assert.Equal(t, data.StatusCancelled, in.Status)
	assert.Equal(t, &reason, in.CancellationReason)
}
