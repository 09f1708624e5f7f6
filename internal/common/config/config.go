// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Mailbox       MailboxConfig      `mapstructure:"mailbox"`
	Extraction    ExtractionConfig   `mapstructure:"extraction"`
	AI            AIConfig           `mapstructure:"ai"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Calendar      CalendarConfig     `mapstructure:"calendar"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Pipeline      PipelineConfig     `mapstructure:"pipeline"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MailboxConfig holds settings for the inbound resume mailbox.
type MailboxConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Address           string `mapstructure:"address"`
	CredentialsFile   string `mapstructure:"credentials_file"`
	Query             string `mapstructure:"query"`
	PollInterval      int    `mapstructure:"poll_interval"`      // seconds
	MaxMessages       int    `mapstructure:"max_messages"`       // per poll cycle
	MaxWorkers        int    `mapstructure:"max_workers"`        // concurrent candidates
	AttachmentLimit   int64  `mapstructure:"attachment_limit"`   // bytes
	AcknowledgeIntake bool   `mapstructure:"acknowledge_intake"` // send ack email on ingest
}

// ExtractionConfig holds thresholds for the layered text extraction engine.
type ExtractionConfig struct {
	MinTextLength     int     `mapstructure:"min_text_length"`
	MinPrintableRatio float64 `mapstructure:"min_printable_ratio"`
	OCREnabled        bool    `mapstructure:"ocr_enabled"`
	OCRLanguages      string  `mapstructure:"ocr_languages"`
}

// AIConfig holds settings for the parsing and screening models.
type AIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	Model              string `mapstructure:"model"`
	Timeout            int    `mapstructure:"timeout"` // milliseconds
	MaxParseAttempts   int    `mapstructure:"max_parse_attempts"`
	JobDescriptionPath string `mapstructure:"job_description_path"`
}

// StorageConfig selects the resume blob backend.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"` // s3 | local
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Region string `mapstructure:"s3_region"`
	LocalDir string `mapstructure:"local_dir"`
}

// CalendarConfig holds settings for interview calendar events.
type CalendarConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CalendarID      string `mapstructure:"calendar_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Timezone        string `mapstructure:"timezone"`
}

// NotificationConfig holds settings for outbound candidate email.
type NotificationConfig struct {
	Email             EmailConfig `mapstructure:"email"`
	AWS               AWSConfig   `mapstructure:"aws"`
	MaxRetries        int         `mapstructure:"max_retries"`
	BulkWorkers       int         `mapstructure:"bulk_workers"`
	InviteLeadHours   int         `mapstructure:"invite_lead_hours"`   // default interview start offset
	InviteDurationMin int         `mapstructure:"invite_duration_min"` // default interview length
}

type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	FromEmail string `mapstructure:"from_email"`
	ReplyTo   string `mapstructure:"reply_to"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// PipelineConfig holds general per-stage settings.
type PipelineConfig struct {
	StageTimeout int `mapstructure:"stage_timeout"` // milliseconds, per external call
	MaxRetries   int `mapstructure:"max_retries"`
	RetryDelay   int `mapstructure:"retry_delay"` // milliseconds, initial backoff
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds settings for the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
