// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with MEDICONNECT_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Required settings (environment name in parentheses):
//   - data.database.source (DB_DSN)
//   - services.patient.url (PATIENT_SERVICE_URL)
//   - services.doctor.url (DOCTOR_SERVICE_URL)
//   - services.auth.url (AUTH_SERVICE_URL)
//   - insurance.api_url (INSURANCE_API_URL)
//   - insurance.api_key (INSURANCE_API_KEY)
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MEDICONNECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names are accepted for compatibility with the other platform services.
	_ = v.BindEnv("server.http.addr", "MEDICONNECT_SERVER_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("data.database.driver", "MEDICONNECT_DATA_DATABASE_DRIVER", "DB_DRIVER")
	_ = v.BindEnv("data.database.source", "MEDICONNECT_DATA_DATABASE_SOURCE", "DB_DSN")
	_ = v.BindEnv("data.redis.addr", "MEDICONNECT_DATA_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("data.encryption_key", "MEDICONNECT_DATA_ENCRYPTION_KEY", "ENCRYPTION_KEY")
	_ = v.BindEnv("services.auth.url", "MEDICONNECT_SERVICES_AUTH_URL", "AUTH_SERVICE_URL")
	_ = v.BindEnv("services.patient.url", "MEDICONNECT_SERVICES_PATIENT_URL", "PATIENT_SERVICE_URL")
	_ = v.BindEnv("services.doctor.url", "MEDICONNECT_SERVICES_DOCTOR_URL", "DOCTOR_SERVICE_URL")
	_ = v.BindEnv("services.proxy_url", "MEDICONNECT_SERVICES_PROXY_URL", "OUTBOUND_PROXY_URL")
	_ = v.BindEnv("insurance.api_url", "MEDICONNECT_INSURANCE_API_URL", "INSURANCE_API_URL")
	_ = v.BindEnv("insurance.api_key", "MEDICONNECT_INSURANCE_API_KEY", "INSURANCE_API_KEY")
	_ = v.BindEnv("log.level", "MEDICONNECT_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.env", "MEDICONNECT_LOG_ENV", "MEDICONNECT_ENV")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
			Grpc: &Server_GRPC{
				Network: v.GetString("server.grpc.network"),
				Addr:    v.GetString("server.grpc.addr"),
				Timeout: v.GetDuration("server.grpc.timeout"),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver:          v.GetString("data.database.driver"),
				Source:          v.GetString("data.database.source"),
				MaxIdleConns:    v.GetInt("data.database.max_idle_conns"),
				MaxOpenConns:    v.GetInt("data.database.max_open_conns"),
				ConnMaxLifetime: v.GetDuration("data.database.conn_max_lifetime"),
				AutoMigrate:     v.GetBool("data.database.auto_migrate"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
				CacheTTL:     v.GetDuration("data.redis.cache_ttl"),
			},
			EncryptionKey: v.GetString("data.encryption_key"),
		},
		Services: &Services{
			Auth: &Services_Endpoint{
				Url:     strings.TrimRight(v.GetString("services.auth.url"), "/"),
				Timeout: v.GetDuration("services.auth.timeout"),
			},
			Patient: &Services_Endpoint{
				Url:     strings.TrimRight(v.GetString("services.patient.url"), "/"),
				Timeout: v.GetDuration("services.patient.timeout"),
			},
			Doctor: &Services_Endpoint{
				Url:     strings.TrimRight(v.GetString("services.doctor.url"), "/"),
				Timeout: v.GetDuration("services.doctor.timeout"),
			},
			ProxyURL:       v.GetString("services.proxy_url"),
			TokenCacheSize: v.GetInt("services.token_cache_size"),
			TokenCacheTTL:  v.GetDuration("services.token_cache_ttl"),
		},
		Insurance: &Insurance{
			ApiUrl: strings.TrimRight(v.GetString("insurance.api_url"), "/"),
			ApiKey: v.GetString("insurance.api_key"),
			Breaker: &Insurance_Breaker{
				CallTimeout:         v.GetDuration("insurance.breaker.call_timeout"),
				FailureThreshold:    v.GetUint32("insurance.breaker.failure_threshold"),
				ResetTimeout:        v.GetDuration("insurance.breaker.reset_timeout"),
				RollingWindow:       v.GetDuration("insurance.breaker.rolling_window"),
				VolumeThreshold:     v.GetUint32("insurance.breaker.volume_threshold"),
				HalfOpenMaxRequests: v.GetUint32("insurance.breaker.half_open_max_requests"),
				StatsReportSpec:     v.GetString("insurance.breaker.stats_report_spec"),
			},
		},
		Appointment: &Appointment{
			PreconditionTimeout: v.GetDuration("appointment.precondition_timeout"),
			VerificationTimeout: v.GetDuration("appointment.verification_timeout"),
			UpcomingWindow:      v.GetDuration("appointment.upcoming_window"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":3004")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9004")
	v.SetDefault("server.grpc.timeout", 30*time.Second)

	// Data defaults
	// Note: data.database.source (DB_DSN) is required from environment
	v.SetDefault("data.database.driver", "mysql")
	v.SetDefault("data.database.max_idle_conns", 10)
	v.SetDefault("data.database.max_open_conns", 100)
	v.SetDefault("data.database.conn_max_lifetime", time.Hour)
	v.SetDefault("data.database.auto_migrate", true)

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.cache_ttl", 5*time.Minute)

	// Remote service defaults
	v.SetDefault("services.auth.timeout", 5*time.Second)
	v.SetDefault("services.patient.timeout", 5*time.Second)
	v.SetDefault("services.doctor.timeout", 5*time.Second)
	v.SetDefault("services.token_cache_size", 1024)
	v.SetDefault("services.token_cache_ttl", 30*time.Second)

	// Insurance breaker defaults
	v.SetDefault("insurance.breaker.call_timeout", 5*time.Second)
	v.SetDefault("insurance.breaker.failure_threshold", 50)
	v.SetDefault("insurance.breaker.reset_timeout", 30*time.Second)
	v.SetDefault("insurance.breaker.rolling_window", 10*time.Second)
	v.SetDefault("insurance.breaker.volume_threshold", 1)
	v.SetDefault("insurance.breaker.half_open_max_requests", 1)
	v.SetDefault("insurance.breaker.stats_report_spec", "0 */5 * * * *")

	// Appointment defaults
	v.SetDefault("appointment.precondition_timeout", 10*time.Second)
	v.SetDefault("appointment.verification_timeout", 30*time.Second)
	v.SetDefault("appointment.upcoming_window", 90*24*time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (DB_DSN)")
	}

	if bc.Services == nil || bc.Services.Patient == nil || bc.Services.Patient.Url == "" {
		missingFields = append(missingFields, "services.patient.url (PATIENT_SERVICE_URL)")
	}
	if bc.Services == nil || bc.Services.Doctor == nil || bc.Services.Doctor.Url == "" {
		missingFields = append(missingFields, "services.doctor.url (DOCTOR_SERVICE_URL)")
	}
	if bc.Services == nil || bc.Services.Auth == nil || bc.Services.Auth.Url == "" {
		missingFields = append(missingFields, "services.auth.url (AUTH_SERVICE_URL)")
	}

	if bc.Insurance == nil || bc.Insurance.ApiUrl == "" {
		missingFields = append(missingFields, "insurance.api_url (INSURANCE_API_URL)")
	}
	if bc.Insurance == nil || bc.Insurance.ApiKey == "" {
		missingFields = append(missingFields, "insurance.api_key (INSURANCE_API_KEY)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	if k := bc.Data.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("data.encryption_key must be 32 bytes, got %d", len(k))
	}

	if b := bc.Insurance.Breaker; b != nil && b.FailureThreshold > 100 {
		return fmt.Errorf("insurance.breaker.failure_threshold must be within 0-100, got %d", b.FailureThreshold)
	}

	return nil
}
