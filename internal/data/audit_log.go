package data

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"MediConnect/internal/conf"
	"MediConnect/internal/model"
	"MediConnect/pkg/breaker"
	"MediConnect/pkg/crypto"
	pkglog "MediConnect/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// auditBufferSize bounds the queue between callers and the writer goroutine.
const auditBufferSize = 1000

// AuditLog is the GORM model for appointment_audit_logs table
type AuditLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AppointmentID string    `gorm:"column:appointment_id;type:varchar(36);index"`
	ActionType    string    `gorm:"column:action_type;type:varchar(50);not null"`
	Details       string    `gorm:"column:details;type:text"` // JSON, sealed when an encryption key is configured
	ActorID       string    `gorm:"column:actor_id;type:varchar(64);not null;default:'system'"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "appointment_audit_logs"
}

// NewDetailsCipher builds the cipher for audit details from
// data.encryption_key. Without a key details are stored in clear.
func NewDetailsCipher(c *conf.Data) (*crypto.Cipher, error) {
	if c == nil || c.EncryptionKey == "" {
		return nil, nil
	}
	return crypto.NewCipher([]byte(c.EncryptionKey))
}

// AuditLogger writes audit events asynchronously. Events are dropped, never
// blocking the caller, when the buffer is full.
type AuditLogger struct {
	db      *gorm.DB
	cipher  *crypto.Cipher
	logChan chan *AuditLog
	logger  *pkglog.LogHelper

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAuditLogger creates a new audit logger with async channel.
// The cleanup drains queued events before returning.
func NewAuditLogger(d *Data, cipher *crypto.Cipher, logger log.Logger) (*AuditLogger, func()) {
	al := &AuditLogger{
		db:      d.DB(),
		cipher:  cipher,
		logChan: make(chan *AuditLog, auditBufferSize),
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "data/audit")),
		done:    make(chan struct{}),
	}

	go al.start()

	return al, al.Close
}

func (a *AuditLogger) start() {
	defer close(a.done)
	for event := range a.logChan {
		if err := a.db.WithContext(context.Background()).Create(event).Error; err != nil {
			a.logger.Errorw("msg", "failed to write audit log",
				"appointment_id", event.AppointmentID,
				"action_type", event.ActionType,
				"error", err)
			continue
		}
		a.logger.Audit("audit log written",
			"appointment_id", event.AppointmentID,
			"action_type", event.ActionType)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (a *AuditLogger) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.logChan)
	a.mu.Unlock()
	<-a.done
}

func (a *AuditLogger) enqueue(appointmentID, actionType, actorID string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit log details", "error", err)
		return
	}

	stored := string(detailsJSON)
	if a.cipher != nil {
		if stored, err = a.cipher.Seal(stored); err != nil {
			a.logger.Errorw("msg", "failed to seal audit log details", "action_type", actionType, "error", err)
			return
		}
	}

	event := &AuditLog{
		AppointmentID: appointmentID,
		ActionType:    actionType,
		Details:       stored,
		ActorID:       actorID,
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.logChan <- event:
	default:
		a.logger.Warnw("msg", "audit log channel full, dropping event",
			"appointment_id", appointmentID,
			"action_type", actionType)
	}
}

// LogAppointmentCreated records a new appointment.
func (a *AuditLogger) LogAppointmentCreated(ctx context.Context, appt *Appointment) {
	a.enqueue(appt.ID, model.AuditEventAppointmentCreated, model.ActorFromContext(ctx), map[string]interface{}{
		"patient_id":       appt.PatientID,
		"doctor_id":        appt.DoctorID,
		"scheduled_at":     appt.ScheduledAt.Format(time.RFC3339),
		"duration_minutes": appt.DurationMinutes,
	})
}

// LogStatusChanged records a status transition.
func (a *AuditLogger) LogStatusChanged(ctx context.Context, appointmentID string, from, to AppointmentStatus, reason *string) {
	details := map[string]interface{}{
		"from": from,
		"to":   to,
	}
	if reason != nil {
		details["cancellation_reason"] = *reason
	}
	a.enqueue(appointmentID, model.AuditEventStatusChanged, model.ActorFromContext(ctx), details)
}

// LogAppointmentDeleted records a deletion.
func (a *AuditLogger) LogAppointmentDeleted(ctx context.Context, appointmentID string) {
	a.enqueue(appointmentID, model.AuditEventAppointmentDeleted, model.ActorFromContext(ctx), map[string]interface{}{})
}

// LogInsuranceVerified records the outcome of a background verification.
func (a *AuditLogger) LogInsuranceVerified(_ context.Context, appointmentID string, verified bool, eligibilityStatus string) {
	a.enqueue(appointmentID, model.AuditEventInsuranceVerified, model.SystemActor, map[string]interface{}{
		"verified":           verified,
		"eligibility_status": eligibilityStatus,
	})
}

// OnStateChange implements breaker.Listener.
func (a *AuditLogger) OnStateChange(name string, from, to breaker.State) {
	var action string
	switch to {
	case breaker.StateOpen:
		action = model.AuditEventCircuitOpened
	case breaker.StateHalfOpen:
		action = model.AuditEventCircuitHalfOpen
	case breaker.StateClosed:
		action = model.AuditEventCircuitClosed
	default:
		return
	}
	a.enqueue("", action, model.SystemActor, map[string]interface{}{
		"breaker": name,
		"from":    from,
		"to":      to,
	})
}
