package biz

import (
	"context"
	"sync"
	"time"

	"MediConnect/internal/data"
	"MediConnect/internal/model"
	"MediConnect/pkg/insurance"

	"github.com/stretchr/testify/mock"
)

// MockAppointmentRepo is a mock implementation of AppointmentRepo for testing.
type MockAppointmentRepo struct {
	mock.Mock
}

func (m *MockAppointmentRepo) Create(ctx context.Context, a *data.Appointment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAppointmentRepo) Get(ctx context.Context, id string) (*data.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) UpdateStatus(ctx context.Context, id string, change data.StatusChange) error {
	args := m.Called(ctx, id, change)
	return args.Error(0)
}

func (m *MockAppointmentRepo) MarkInsuranceVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAppointmentRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAppointmentRepo) ListByPatient(ctx context.Context, patientID string) ([]*data.Appointment, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).([]*data.Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) ListByDoctor(ctx context.Context, doctorID string) ([]*data.Appointment, error) {
	args := m.Called(ctx, doctorID)
	return args.Get(0).([]*data.Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) ListUpcoming(ctx context.Context, patientID string, from, to time.Time) ([]*data.Appointment, error) {
	args := m.Called(ctx, patientID, from, to)
	return args.Get(0).([]*data.Appointment), args.Error(1)
}

// MockPatientRepo is a mock implementation of PatientRepo for testing.
type MockPatientRepo struct {
	mock.Mock
}

func (m *MockPatientRepo) Exists(ctx context.Context, patientID string) error {
	args := m.Called(ctx, patientID)
	return args.Error(0)
}

func (m *MockPatientRepo) GetProfile(ctx context.Context, patientID string) (*data.PatientProfile, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.PatientProfile), args.Error(1)
}

// MockDoctorRepo is a mock implementation of DoctorRepo for testing.
type MockDoctorRepo struct {
	mock.Mock
}

func (m *MockDoctorRepo) Exists(ctx context.Context, doctorID string) error {
	args := m.Called(ctx, doctorID)
	return args.Error(0)
}

// MockInsuranceRepo is a mock implementation of InsuranceRepo for testing.
type MockInsuranceRepo struct {
	mock.Mock
}

func (m *MockInsuranceRepo) Verify(ctx context.Context, patientID, policyNumber string) (*insurance.Result, error) {
	args := m.Called(ctx, patientID, policyNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*insurance.Result), args.Error(1)
}

// MockTokenVerifier is a mock implementation of TokenVerifier for testing.
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) VerifyToken(ctx context.Context, token string) (*model.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Principal), args.Error(1)
}

// recordingAudit collects audit calls; it is safe for use from the background task.
type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAudit) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAudit) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingAudit) LogAppointmentCreated(_ context.Context, _ *data.Appointment) {
	r.add(model.AuditEventAppointmentCreated)
}

func (r *recordingAudit) LogStatusChanged(_ context.Context, _ string, _, _ data.AppointmentStatus, _ *string) {
	r.add(model.AuditEventStatusChanged)
}

func (r *recordingAudit) LogAppointmentDeleted(_ context.Context, _ string) {
	r.add(model.AuditEventAppointmentDeleted)
}

func (r *recordingAudit) LogInsuranceVerified(_ context.Context, _ string, _ bool, _ string) {
	r.add(model.AuditEventInsuranceVerified)
}
