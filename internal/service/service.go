package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewAppointmentService)

// Operation names carried by the transport for middleware selection.
const (
	OperationCreateAppointment        = "/mediconnect.appointment.v1.Appointment/CreateAppointment"
	OperationGetAppointment           = "/mediconnect.appointment.v1.Appointment/GetAppointment"
	OperationListPatientAppointments  = "/mediconnect.appointment.v1.Appointment/ListPatientAppointments"
	OperationListUpcomingAppointments = "/mediconnect.appointment.v1.Appointment/ListUpcomingAppointments"
	OperationListDoctorAppointments   = "/mediconnect.appointment.v1.Appointment/ListDoctorAppointments"
	OperationUpdateAppointmentStatus  = "/mediconnect.appointment.v1.Appointment/UpdateAppointmentStatus"
	OperationDeleteAppointment        = "/mediconnect.appointment.v1.Appointment/DeleteAppointment"
	OperationCircuitBreakerStats      = "/mediconnect.appointment.v1.Appointment/CircuitBreakerStats"
)
