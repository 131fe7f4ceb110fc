package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MediConnect/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestAppointmentRepo(t *testing.T) (*AppointmentRepo, *Data) {
	t.Helper()
	repo, d, _ := newTestAppointmentRepoWithRedis(t)
	return repo, d
}

func newTestAppointmentRepoWithRedis(t *testing.T) (*AppointmentRepo, *Data, *miniredis.Miniredis) {
	t.Helper()
	d, mr := newTestData(t)
	return NewAppointmentRepo(&conf.Data{}, d, log.DefaultLogger), d, mr
}

func strPtr(s string) *string { return &s }

func seedAppointment(t *testing.T, repo *AppointmentRepo, patientID, doctorID string, at time.Time) *Appointment {
	t.Helper()
	a := &Appointment{PatientID: patientID, DoctorID: doctorID, ScheduledAt: at}
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func TestAppointmentStatus_ScanValue(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    AppointmentStatus
		wantErr bool
	}{
		{"scan from string", "CONFIRMED", StatusConfirmed, false},
		{"scan from bytes", []byte("NO_SHOW"), StatusNoShow, false},
		{"scan from nil", nil, "", false},
		{"scan from invalid type", 42, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s AppointmentStatus
			err := s.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}

	v, err := StatusCancelled.Value()
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", v)
}

func TestAppointmentStatus_Valid(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AppointmentStatus("RESCHEDULED").Valid())
	assert.False(t, AppointmentStatus("").Valid())
}

func TestAppointmentRepo_CreateDefaults(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)
	ctx := context.Background()

	a := &Appointment{
		PatientID:      "p-1",
		DoctorID:       "d-1",
		ScheduledAt:    time.Now().Add(24 * time.Hour),
		ReasonForVisit: strPtr("checkup"),
	}
	require.NoError(t, repo.Create(ctx, a))

	assert.Len(t, a.ID, 36, "a UUID is assigned")
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, DefaultDurationMinutes, a.DurationMinutes)
	assert.False(t, a.InsuranceVerified)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "checkup", *got.ReasonForVisit)
	assert.Nil(t, got.CancelledAt)
}

func TestAppointmentRepo_CreateDuplicateID(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	err := repo.Create(ctx, &Appointment{ID: a.ID, PatientID: "p-2", DoctorID: "d-2", ScheduledAt: time.Now()})
	assert.ErrorIs(t, err, ErrDuplicateAppointment)
}

func TestAppointmentRepo_CreateRegeneratesCollidingID(t *testing.T) {
	repo, d := newTestAppointmentRepo(t)
	ctx := context.Background()
	existing := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	var once sync.Once
	require.NoError(t, d.DB().Callback().Create().After("gorm:before_create").Register("test:collide", func(tx *gorm.DB) {
		once.Do(func() {
			tx.Statement.Dest.(*Appointment).ID = existing.ID
		})
	}))

	a := &Appointment{PatientID: "p-2", DoctorID: "d-2", ScheduledAt: time.Now().Add(2 * time.Hour)}
	require.NoError(t, repo.Create(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, existing.ID, a.ID)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "p-2", got.PatientID)
}

func TestAppointmentRepo_GetNotFound(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)

	_, err := repo.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestAppointmentRepo_GetUsesCache(t *testing.T) {
	repo, d, mr := newTestAppointmentRepoWithRedis(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	_, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(BuildCacheKey(CacheKeyAppointment, a.ID)))

	// cached copy is served even when the row changes underneath without invalidation
	require.NoError(t, d.DB().Model(&Appointment{}).Where("id = ?", a.ID).Update("duration_minutes", 90).Error)
	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultDurationMinutes, got.DurationMinutes)
}

func TestAppointmentRepo_UpdateStatusCancel(t *testing.T) {
	repo, _, mr := newTestAppointmentRepoWithRedis(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))
	_, _ = repo.Get(ctx, a.ID) // warm the cache

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateStatus(ctx, a.ID, StatusChange{
		Status:             StatusCancelled,
		CancellationReason: strPtr("feeling better"),
		CancelledAt:        &now,
	}))

	assert.False(t, mr.Exists(BuildCacheKey(CacheKeyAppointment, a.ID)), "write invalidates the cache")

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, "feeling better", *got.CancellationReason)
	require.NotNil(t, got.CancelledAt)
	assert.True(t, now.Equal(*got.CancelledAt))
}

func TestAppointmentRepo_UpdateStatusMissingRowIsSilent(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)

	err := repo.UpdateStatus(context.Background(), "missing", StatusChange{Status: StatusConfirmed})
	assert.NoError(t, err)
}

func TestAppointmentRepo_MarkInsuranceVerified(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	require.NoError(t, repo.MarkInsuranceVerified(ctx, a.ID))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.InsuranceVerified)
	assert.Equal(t, StatusScheduled, got.Status)
}

func TestAppointmentRepo_MarkInsuranceVerifiedRetriesLockedDatabase(t *testing.T) {
	repo, d := newTestAppointmentRepo(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	attempts := 0
	require.NoError(t, d.DB().Callback().Update().Before("gorm:update").Register("test:locked", func(tx *gorm.DB) {
		attempts++
		if attempts == 1 {
			_ = tx.AddError(errors.New("database is locked"))
		}
	}))

	require.NoError(t, repo.MarkInsuranceVerified(ctx, a.ID))
	assert.Equal(t, 2, attempts)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.InsuranceVerified)
}

func TestAppointmentRepo_MarkInsuranceVerifiedDoesNotRetryPermanentErrors(t *testing.T) {
	repo, d := newTestAppointmentRepo(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	attempts := 0
	require.NoError(t, d.DB().Callback().Update().Before("gorm:update").Register("test:check_failed", func(tx *gorm.DB) {
		attempts++
		_ = tx.AddError(errors.New("CHECK constraint failed: insurance_verified"))
	}))

	err := repo.MarkInsuranceVerified(ctx, a.ID)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestAppointmentRepo_ConcurrentStatusAndInsuranceWrites(t *testing.T) {
	repo, d := newTestAppointmentRepo(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, repo.UpdateStatus(ctx, a.ID, StatusChange{Status: StatusConfirmed}))
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, repo.MarkInsuranceVerified(ctx, a.ID))
	}()
	wg.Wait()

	var got Appointment
	require.NoError(t, d.DB().Where("id = ?", a.ID).First(&got).Error)
	assert.Equal(t, StatusConfirmed, got.Status, "status survives the insurance write")
	assert.True(t, got.InsuranceVerified, "insurance flag survives the status write")
}

func TestAppointmentRepo_GetRacingInsuranceWrite(t *testing.T) {
	repo, d, mr := newTestAppointmentRepoWithRedis(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))

	// the background insurance write lands after Get has read the row but
	// before it fills the cache
	var once sync.Once
	require.NoError(t, d.DB().Callback().Query().After("gorm:query").Register("test:insurance_write", func(tx *gorm.DB) {
		if tx.Statement.Table != (Appointment{}).TableName() {
			return
		}
		once.Do(func() {
			require.NoError(t, repo.MarkInsuranceVerified(ctx, a.ID))
		})
	}))

	first, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, first.InsuranceVerified, "read started before the write")
	assert.False(t, mr.Exists(BuildCacheKey(CacheKeyAppointment, a.ID)), "stale row is not cached")

	reread, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, reread.InsuranceVerified)

	cached, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, cached.InsuranceVerified)
	assert.True(t, mr.Exists(BuildCacheKey(CacheKeyAppointment, a.ID)))
}

func TestAppointmentRepo_Delete(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)
	ctx := context.Background()
	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))
	_, _ = repo.Get(ctx, a.ID)

	require.NoError(t, repo.Delete(ctx, a.ID))

	_, err := repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound, "deleted rows are not served from cache")

	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrAppointmentNotFound)
}

func TestAppointmentRepo_ListOrdering(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)
	ctx := context.Background()
	base := time.Now().Add(time.Hour)

	third := seedAppointment(t, repo, "p-1", "d-1", base.Add(72*time.Hour))
	first := seedAppointment(t, repo, "p-1", "d-2", base)
	second := seedAppointment(t, repo, "p-1", "d-1", base.Add(24*time.Hour))
	seedAppointment(t, repo, "p-2", "d-1", base.Add(48*time.Hour))

	byPatient, err := repo.ListByPatient(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, byPatient, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID},
		[]string{byPatient[0].ID, byPatient[1].ID, byPatient[2].ID})

	byDoctor, err := repo.ListByDoctor(ctx, "d-1")
	require.NoError(t, err)
	require.Len(t, byDoctor, 3)
	for i := 1; i < len(byDoctor); i++ {
		assert.False(t, byDoctor[i].ScheduledAt.Before(byDoctor[i-1].ScheduledAt))
	}

	none, err := repo.ListByPatient(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAppointmentRepo_ListUpcoming(t *testing.T) {
	repo, _ := newTestAppointmentRepo(t)
	ctx := context.Background()
	now := time.Now()

	soon := seedAppointment(t, repo, "p-1", "d-1", now.Add(48*time.Hour))
	seedAppointment(t, repo, "p-1", "d-1", now.Add(-48*time.Hour))    // past
	seedAppointment(t, repo, "p-1", "d-1", now.Add(120*24*time.Hour)) // beyond the window
	cancelled := seedAppointment(t, repo, "p-1", "d-1", now.Add(72*time.Hour))
	require.NoError(t, repo.UpdateStatus(ctx, cancelled.ID, StatusChange{Status: StatusCancelled}))
	seedAppointment(t, repo, "p-2", "d-1", now.Add(24*time.Hour)) // other patient

	upcoming, err := repo.ListUpcoming(ctx, "p-1", now, now.Add(90*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soon.ID, upcoming[0].ID)
}

func TestAppointmentRepo_WorksWithoutRedis(t *testing.T) {
	d, _ := newTestData(t)
	noCache := &Data{db: d.DB(), cache: NewCacheClient(nil)}
	repo := NewAppointmentRepo(nil, noCache, log.DefaultLogger)
	ctx := context.Background()

	a := seedAppointment(t, repo, "p-1", "d-1", time.Now().Add(time.Hour))
	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	require.NoError(t, repo.MarkInsuranceVerified(ctx, a.ID))
}
