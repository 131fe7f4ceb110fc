// Package biz contains business logic layer implementations.
// This layer holds the appointment rules; persistence and remote calls sit
// behind the interfaces declared in repo.go.
package biz

import (
	"MediConnect/internal/data"
	"MediConnect/pkg/breaker"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewInsuranceVerifier,
	NewAppointmentUsecase,
	NewAuthUsecase,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(AppointmentRepo), new(*data.AppointmentRepo)),
	wire.Bind(new(PatientRepo), new(*data.PatientRepo)),
	wire.Bind(new(DoctorRepo), new(*data.DoctorRepo)),
	wire.Bind(new(InsuranceRepo), new(*data.InsuranceRepo)),
	wire.Bind(new(CircuitBreaker), new(*breaker.Breaker)),
	wire.Bind(new(AuditLogger), new(*data.AuditLogger)),
	wire.Bind(new(TokenVerifier), new(*data.AuthRepo)),
)
