package model

// Audit event type constants, stored in appointment_audit_logs.action_type.
const (
	AuditEventAppointmentCreated = "APPOINTMENT_CREATED"
	AuditEventStatusChanged      = "APPOINTMENT_STATUS_CHANGED"
	AuditEventAppointmentDeleted = "APPOINTMENT_DELETED"
	AuditEventInsuranceVerified  = "INSURANCE_VERIFIED"
	AuditEventCircuitOpened      = "CIRCUIT_OPENED"
	AuditEventCircuitHalfOpen    = "CIRCUIT_HALF_OPEN"
	AuditEventCircuitClosed      = "CIRCUIT_CLOSED"
)

// SystemActor is recorded when no authenticated user triggered the event.
const SystemActor = "system"
