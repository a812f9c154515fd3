package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	LogFormat     string
	JWTSigningKey string

	KYC      KYCConfig
	Store    StoreConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Audit    AuditConfig
	Shutdown time.Duration
}

// KYCConfig holds workflow knobs.
type KYCConfig struct {
	// ApprovalDelay is how long a submitted application waits before the
	// simulated back office approves it.
	ApprovalDelay time.Duration
	// SimulatedLatency is added to every store call when non-zero.
	SimulatedLatency time.Duration
	MaxProofBytes    int64
	MaxPhotoBytes    int64
	// SchedulerPoll is the Redis scheduler claim interval.
	SchedulerPoll time.Duration
}

// StoreConfig selects the application store backend.
type StoreConfig struct {
	Driver      string // "memory" or "postgres"
	DatabaseURL string
	MaxOpen     int
	MaxIdle     int
}

// RedisConfig enables the shared approval scheduler when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the Kafka audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	ClientID   string
	AuditTopic string
	Partitions int32
}

type AuditConfig struct {
	BufferSize int
}

const (
	defaultMaxProofBytes = 5 << 20
	defaultMaxPhotoBytes = 2 << 20
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envString("KYC_ADDR", ":8080"),
		LogLevel:      envString("LOG_LEVEL", "info"),
		LogFormat:     envString("LOG_FORMAT", "json"),
		JWTSigningKey: jwtSigningKey,
		KYC: KYCConfig{
			ApprovalDelay:    envDuration("KYC_APPROVAL_DELAY", 10*time.Second),
			SimulatedLatency: envDuration("KYC_SIMULATED_LATENCY", 0),
			MaxProofBytes:    envInt64("KYC_MAX_PROOF_BYTES", defaultMaxProofBytes),
			MaxPhotoBytes:    envInt64("KYC_MAX_PHOTO_BYTES", defaultMaxPhotoBytes),
			SchedulerPoll:    envDuration("KYC_SCHEDULER_POLL", 500*time.Millisecond),
		},
		Store: StoreConfig{
			Driver:      envString("KYC_STORE", "memory"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			MaxOpen:     int(envInt64("DATABASE_MAX_OPEN_CONNS", 20)),
			MaxIdle:     int(envInt64("DATABASE_MAX_IDLE_CONNS", 5)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     int(envInt64("REDIS_POOL_SIZE", 10)),
			MinIdleConns: int(envInt64("REDIS_MIN_IDLE_CONNS", 2)),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("KAFKA_BROKERS"),
			ClientID:   envString("KAFKA_CLIENT_ID", "kycflow"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "kyc.audit"),
			Partitions: int32(envInt64("KAFKA_AUDIT_PARTITIONS", 3)),
		},
		Audit: AuditConfig{
			BufferSize: int(envInt64("AUDIT_BUFFER_SIZE", 1024)),
		},
		Shutdown: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
