package conf

import "time"

// Bootstrap is the root configuration of the appointment service.
type Bootstrap struct {
	Server      *Server
	Data        *Data
	Services    *Services
	Insurance   *Insurance
	Appointment *Appointment
	Log         *Log
}

type Server struct {
	Http *Server_HTTP
	Grpc *Server_GRPC
}

type Server_HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

type Server_GRPC struct {
	Network string
	Addr    string
	Timeout time.Duration
}

type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
	// EncryptionKey is a 32 byte key sealing audit details at rest. Empty stores them in clear.
	EncryptionKey string
}

// Data_Database selects the GORM dialector. Driver is "mysql" or "sqlite".
type Data_Database struct {
	Driver          string
	Source          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type Data_Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Services holds the base URLs of the collaborating platform services.
type Services struct {
	Auth    *Services_Endpoint
	Patient *Services_Endpoint
	Doctor  *Services_Endpoint
	// ProxyURL routes outbound calls through an http(s) or socks5 proxy when set.
	ProxyURL string
	// TokenCacheSize and TokenCacheTTL bound the verified-token cache.
	TokenCacheSize int
	TokenCacheTTL  time.Duration
}

type Services_Endpoint struct {
	Url     string
	Timeout time.Duration
}

type Insurance struct {
	ApiUrl  string
	ApiKey  string
	Breaker *Insurance_Breaker
}

// Insurance_Breaker configures the circuit breaker that guards the insurance API.
type Insurance_Breaker struct {
	// CallTimeout bounds a single verification call. A timeout counts as a failure.
	CallTimeout time.Duration
	// FailureThreshold is the failure percentage (0-100) that trips the breaker.
	FailureThreshold uint32
	// ResetTimeout is how long the breaker stays open before a trial call.
	ResetTimeout time.Duration
	// RollingWindow is the interval over which closed-state counts accumulate.
	RollingWindow time.Duration
	// VolumeThreshold is the minimum number of calls in the window before tripping.
	VolumeThreshold uint32
	// HalfOpenMaxRequests is the number of trial calls allowed while half-open.
	HalfOpenMaxRequests uint32
	// StatsReportSpec is the cron spec for the periodic stats log. Empty disables it.
	StatsReportSpec string
}

type Appointment struct {
	// PreconditionTimeout bounds the patient and doctor existence checks together.
	PreconditionTimeout time.Duration
	// VerificationTimeout bounds the detached insurance verification task.
	VerificationTimeout time.Duration
	// UpcomingWindow is the look-ahead for upcoming appointments.
	UpcomingWindow time.Duration
}

type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
