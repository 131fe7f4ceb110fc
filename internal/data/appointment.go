package data

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"MediConnect/internal/conf"
	pkgerrors "MediConnect/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrAppointmentNotFound is returned when no appointment row matches the id.
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrDuplicateAppointment is returned when a caller-supplied id already exists.
	ErrDuplicateAppointment = errors.New("appointment already exists")
)

// Lock contention and dropped connections are retried this many times in total.
const (
	maxWriteAttempts = 3
	writeRetryDelay  = 50 * time.Millisecond
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

// Appointment status constants. Any status may move to any other.
const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

// DefaultDurationMinutes is used when a request omits the duration.
const DefaultDurationMinutes = 30

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Scan implements sql.Scanner interface for AppointmentStatus.
func (s *AppointmentStatus) Scan(value interface{}) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*s = AppointmentStatus(v)
	case string:
		*s = AppointmentStatus(v)
	default:
		return fmt.Errorf("cannot scan type %T into AppointmentStatus", value)
	}
	return nil
}

// Value implements driver.Valuer interface for AppointmentStatus.
func (s AppointmentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Appointment is the GORM model for the appointments table.
type Appointment struct {
	ID                 string            `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	PatientID          string            `gorm:"column:patient_id;type:varchar(36);not null;index:idx_appointments_patient_scheduled,priority:1" json:"patientId"`
	DoctorID           string            `gorm:"column:doctor_id;type:varchar(36);not null;index:idx_appointments_doctor_scheduled,priority:1" json:"doctorId"`
	ScheduledAt        time.Time         `gorm:"column:scheduled_at;not null;index:idx_appointments_patient_scheduled,priority:2;index:idx_appointments_doctor_scheduled,priority:2" json:"scheduledAt"`
	DurationMinutes    int               `gorm:"column:duration_minutes;not null;default:30" json:"durationMinutes"`
	Status             AppointmentStatus `gorm:"column:status;type:varchar(20);not null;default:'SCHEDULED'" json:"status"`
	ReasonForVisit     *string           `gorm:"column:reason_for_visit;type:text" json:"reasonForVisit,omitempty"`
	PatientNotes       *string           `gorm:"column:patient_notes;type:text" json:"patientNotes,omitempty"`
	InsuranceVerified  bool              `gorm:"column:insurance_verified;not null;default:false" json:"insuranceVerified"`
	CancellationReason *string           `gorm:"column:cancellation_reason;type:text" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time        `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate assigns a UUID when the caller did not.
func (a *Appointment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// StatusChange is the set of columns written by a status update.
// CancellationReason and CancelledAt are written only when non-nil.
type StatusChange struct {
	Status             AppointmentStatus
	CancellationReason *string
	CancelledAt        *time.Time
}

// AppointmentRepo persists appointments in the database and caches reads in Redis.
// Writes touch only the columns they own so a status update and the
// background insurance update never overwrite each other.
type AppointmentRepo struct {
	db     *gorm.DB
	cache  CacheClient
	ttl    time.Duration
	logger *log.Helper
}

// NewAppointmentRepo creates a new appointment repository.
func NewAppointmentRepo(c *conf.Data, d *Data, logger log.Logger) *AppointmentRepo {
	ttl := TTLAppointment
	if c != nil && c.Redis != nil && c.Redis.CacheTTL > 0 {
		ttl = c.Redis.CacheTTL
	}
	return &AppointmentRepo{
		db:     d.DB(),
		cache:  d.GetCache(),
		ttl:    ttl,
		logger: log.NewHelper(log.With(logger, "module", "data/appointment")),
	}
}

// Create inserts a new appointment and fills in its generated fields.
func (r *AppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	a.ScheduledAt = a.ScheduledAt.UTC()
	generated := a.ID == ""
	err := r.db.WithContext(ctx).Create(a).Error
	if err != nil && pkgerrors.IsDuplicateKeyError(err) {
		if !generated {
			return fmt.Errorf("%w: %s", ErrDuplicateAppointment, a.ID)
		}
		r.logger.Warnw("msg", "generated appointment id collided, retrying", "appointment_id", a.ID)
		a.ID = ""
		err = r.db.WithContext(ctx).Create(a).Error
	}
	if err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		r.logger.Errorw("msg", "failed to create appointment", "error_type", dbErr.Type.String(), "error", err)
		return fmt.Errorf("failed to create appointment: %w", dbErr)
	}
	return nil
}

// Get returns the appointment with id or ErrAppointmentNotFound.
func (r *AppointmentRepo) Get(ctx context.Context, id string) (*Appointment, error) {
	key := BuildCacheKey(CacheKeyAppointment, id)

	var cached Appointment
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheNotFound) {
		r.logger.Debugw("msg", "appointment cache unavailable", "appointment_id", id, "error", err)
	}

	// generation is read before the row so a write landing in between
	// keeps this copy out of the cache
	gen, genErr := r.cache.Generation(ctx, key)

	var a Appointment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if pkgerrors.IsNotFoundError(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", pkgerrors.ClassifyDBError(err))
	}

	if genErr == nil {
		if stored, err := r.cache.SetIfGeneration(ctx, key, gen, &a, r.ttl); err != nil {
			r.logger.Debugw("msg", "failed to cache appointment", "appointment_id", id, "error", err)
		} else if !stored {
			r.logger.Debugw("msg", "appointment changed during read, not cached", "appointment_id", id)
		}
	}
	return &a, nil
}

// UpdateStatus writes the status columns of id. It does not report a missing
// row; callers read the record back to confirm the write.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	fields := map[string]interface{}{
		"status": change.Status,
	}
	if change.CancellationReason != nil {
		fields["cancellation_reason"] = *change.CancellationReason
	}
	if change.CancelledAt != nil {
		fields["cancelled_at"] = *change.CancelledAt
	}

	err := r.db.WithContext(ctx).
		Model(&Appointment{}).
		Where("id = ?", id).
		Updates(fields).Error
	r.invalidate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", pkgerrors.ClassifyDBError(err))
	}
	return nil
}

// MarkInsuranceVerified sets insurance_verified to true. The flag never goes back to false.
// Lock contention and connection errors are retried.
func (r *AppointmentRepo) MarkInsuranceVerified(ctx context.Context, id string) error {
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = r.db.WithContext(ctx).
			Model(&Appointment{}).
			Where("id = ?", id).
			Update("insurance_verified", true).Error
		if err == nil || !pkgerrors.IsRetryable(err) || attempt == maxWriteAttempts {
			break
		}
		r.logger.Warnw("msg", "insurance flag write failed, retrying", "appointment_id", id, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(writeRetryDelay):
			continue
		}
		break
	}
	r.invalidate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark insurance verified: %w", pkgerrors.ClassifyDBError(err))
	}
	return nil
}

// Delete removes the appointment with id or returns ErrAppointmentNotFound.
func (r *AppointmentRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Appointment{})
	r.invalidate(ctx, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete appointment: %w", pkgerrors.ClassifyDBError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// ListByPatient returns all appointments of a patient ordered by scheduled time.
func (r *AppointmentRepo) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("patient_id = ?", patientID))
}

// ListByDoctor returns all appointments of a doctor ordered by scheduled time.
func (r *AppointmentRepo) ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("doctor_id = ?", doctorID))
}

// ListUpcoming returns the patient's SCHEDULED appointments within [from, to].
func (r *AppointmentRepo) ListUpcoming(ctx context.Context, patientID string, from, to time.Time) ([]*Appointment, error) {
	return r.list(ctx, r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ?", patientID, StatusScheduled).
		Where("scheduled_at BETWEEN ? AND ?", from.UTC(), to.UTC()))
}

func (r *AppointmentRepo) list(_ context.Context, q *gorm.DB) ([]*Appointment, error) {
	appointments := make([]*Appointment, 0)
	if err := q.Order("scheduled_at ASC").Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", pkgerrors.ClassifyDBError(err))
	}
	return appointments, nil
}

func (r *AppointmentRepo) invalidate(ctx context.Context, id string) {
	if err := r.cache.Invalidate(ctx, BuildCacheKey(CacheKeyAppointment, id)); err != nil {
		r.logger.Debugw("msg", "failed to invalidate appointment cache", "appointment_id", id, "error", err)
	}
}
