package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names. Anything other than production enables debug conveniences
// such as echoing verification codes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full process configuration.
type Config struct {
	Server        Server
	Verification  Verification
	Contribution  Contribution
	Storage       Storage
	Redis         RedisConfig
	Kafka         Kafka
	Notifications Notifications
	Payments      Payments
	RateLimit     RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	AdminToken      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// IsProduction reports whether the process runs in production mode.
func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

// Verification configures the one-time code gate.
type Verification struct {
	CodeLength      int
	ValidityWindow  time.Duration
	MaxAttempts     int
	TokenSigningKey string
	TokenTTL        time.Duration
	DispatchTimeout time.Duration
}

// Contribution configures the minimum contribution formula.
type Contribution struct {
	StandardRate        int64
	RecentGraduateRate  int64
	YouthRate           int64
	LatestCohort        int
	RecentCohortCount   int
	CurrencyDisplayCode string
}

// Storage selects the relational store. An empty URL selects in-memory stores.
type Storage struct {
	DatabaseURL     string
	MaxConns        int32
	TxTimeout       time.Duration
	ReconcileOnBoot bool
}

// RedisConfig configures the verification record store. An empty URL selects
// the in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the notification queue. No brokers selects the in-process queue.
type Kafka struct {
	Brokers           []string
	NotificationTopic string
	ConsumerGroup     string
	Partitions        int32
	ReplicationFactor int16
}

// Enabled reports whether brokers are configured.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// Notifications configures delivery channels.
type Notifications struct {
	QueueSize       int
	SMTPAddr        string
	SMTPFrom        string
	SMTPUsername    string
	SMTPPassword    string
	WhatsAppAPIURL  string
	WhatsAppToken   string
	TelegramToken   string
	TelegramChatID  string
	CheckInBaseURL  string
	EventName       string
	DeliveryTimeout time.Duration
}

// Payments configures transaction ids and reconciliation.
type Payments struct {
	SnowflakeNode int64
	// ReconcileBatch caps transactions replayed per reconciliation pass; 0 means all.
	ReconcileBatch int
}

// RateLimit configures the sliding window limits on the public surface.
// A zero request count disables that limit.
type RateLimit struct {
	Disabled          bool
	Window            time.Duration
	IssuePerIP        int
	IssuePerIdentity  int
	VerifyPerIP       int
	VerifyPerIdentity int
	WritePerIP        int
	WriteWindow       time.Duration
}

// FromEnv builds the config from the process environment, loading a .env file
// first when present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Server: Server{
			Addr:            getEnv("REGISTRATION_ADDR", ":8080"),
			Environment:     getEnv("APP_ENV", EnvDevelopment),
			AdminToken:      getEnv("ADMIN_API_TOKEN", ""),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Verification: Verification{
			CodeLength:      getInt("OTP_CODE_LENGTH", 6),
			ValidityWindow:  getDuration("OTP_VALIDITY_WINDOW", 10*time.Minute),
			MaxAttempts:     getInt("OTP_MAX_ATTEMPTS", 5),
			TokenSigningKey: getEnv("VERIFICATION_TOKEN_KEY", "dev-verification-key-change-in-production"),
			TokenTTL:        getDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			DispatchTimeout: getDuration("NOTIFICATION_DISPATCH_TIMEOUT", 5*time.Second),
		},
		Contribution: Contribution{
			StandardRate:        getInt64("CONTRIBUTION_STANDARD_RATE", 500),
			RecentGraduateRate:  getInt64("CONTRIBUTION_RECENT_GRADUATE_RATE", 350),
			YouthRate:           getInt64("CONTRIBUTION_YOUTH_RATE", 350),
			LatestCohort:        getInt("CONTRIBUTION_LATEST_COHORT", 2025),
			RecentCohortCount:   getInt("CONTRIBUTION_RECENT_COHORTS", 2),
			CurrencyDisplayCode: getEnv("CONTRIBUTION_CURRENCY", "INR"),
		},
		Storage: Storage{
			DatabaseURL:     getEnv("DATABASE_URL", ""),
			MaxConns:        int32(getInt("DATABASE_MAX_CONNS", 10)),
			TxTimeout:       getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
			ReconcileOnBoot: getBool("RECONCILE_ON_BOOT", true),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:           getList("KAFKA_BROKERS"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "registration.notifications"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "registration-notifier"),
			Partitions:        int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Notifications: Notifications{
			QueueSize:       getInt("NOTIFICATION_QUEUE_SIZE", 256),
			SMTPAddr:        getEnv("SMTP_ADDR", ""),
			SMTPFrom:        getEnv("SMTP_FROM", "registrations@localhost"),
			SMTPUsername:    getEnv("SMTP_USERNAME", ""),
			SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
			WhatsAppAPIURL:  getEnv("WHATSAPP_API_URL", ""),
			WhatsAppToken:   getEnv("WHATSAPP_TOKEN", ""),
			TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID:  getEnv("TELEGRAM_ADMIN_CHAT_ID", ""),
			CheckInBaseURL:  getEnv("CHECKIN_BASE_URL", "http://localhost:8080/checkin"),
			EventName:       getEnv("EVENT_NAME", "Alumni Meet"),
			DeliveryTimeout: getDuration("NOTIFICATION_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Payments: Payments{
			SnowflakeNode:  getInt64("SNOWFLAKE_NODE", 1),
			ReconcileBatch: getInt("RECONCILE_BATCH", 500),
		},
		RateLimit: RateLimit{
			Disabled:          getBool("RATE_LIMIT_DISABLED", false),
			Window:            getDuration("RATE_LIMIT_OTP_WINDOW", 15*time.Minute),
			IssuePerIP:        getInt("RATE_LIMIT_OTP_ISSUE_PER_IP", 30),
			IssuePerIdentity:  getInt("RATE_LIMIT_OTP_ISSUE_PER_EMAIL", 5),
			VerifyPerIP:       getInt("RATE_LIMIT_OTP_VERIFY_PER_IP", 60),
			VerifyPerIdentity: getInt("RATE_LIMIT_OTP_VERIFY_PER_EMAIL", 20),
			WritePerIP:        getInt("RATE_LIMIT_WRITE_PER_IP", 300),
			WriteWindow:       getDuration("RATE_LIMIT_WRITE_WINDOW", time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
