// Package data provides data access layer implementations.
// It owns the database, the Redis cache and the clients of the remote
// platform services.
package data

import (
	"MediConnect/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewRedisClient,
	NewCacheClient,
	NewData,
	NewAppointmentRepo,
	NewPatientRepo,
	NewDoctorRepo,
	NewInsuranceRepo,
	NewAuthRepo,
	NewCircuitStateRepo,
	NewDetailsCipher,
	NewAuditLogger,
	NewInsuranceBreaker,
)

// Data contains all data layer dependencies.
type Data struct {
	db          *gorm.DB
	redisClient *redis.Client
	cache       CacheClient
	logger      *log.Helper
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis being unavailable does not prevent application startup (graceful degradation).
func NewData(_ *conf.Data, logger log.Logger, db *gorm.DB, rdb *redis.Client, cache CacheClient) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	if rdb == nil {
		helper.Warn("Redis client is nil, caching will be unavailable")
	}

	d := &Data{
		db:          db,
		redisClient: rdb,
		cache:       cache,
		logger:      helper,
	}

	cleanup := func() {
		// the database and Redis clients are closed by their own cleanups
		helper.Info("closing the data resources")
	}

	return d, cleanup, nil
}

// DB returns the GORM client.
func (d *Data) DB() *gorm.DB {
	return d.db
}

// GetCache returns the cache client for repository use.
func (d *Data) GetCache() CacheClient {
	return d.cache
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
