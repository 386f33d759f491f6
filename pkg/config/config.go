package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Documents  DocumentsConfig
	Compliance ComplianceConfig
	Archives   ArchivesConfig
	Signatures SignaturesConfig
	Templates  TemplatesConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DocumentsConfig controls upload validation and content storage.
type DocumentsConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// ComplianceConfig governs NSM/GDPR audit logging and retention rules.
// ArchiveAfterDays and DeleteAfterDays drive the derived retention
// status. DefaultRetentionDays gates deletion for tenants without an
// archive policy of their own; zero disables the default gate.
type ComplianceConfig struct {
	NSMEnabled           bool
	GDPREnabled          bool
	ArchiveAfterDays     int
	DeleteAfterDays      int
	DefaultRetentionDays int
}

// ArchivesConfig controls archive artifact generation workers.
type ArchivesConfig struct {
	ArtifactDir       string
	WorkerConcurrency int
	WorkerRetries     int
}

// SignaturesConfig lists the enabled e-signature providers.
type SignaturesConfig struct {
	EnabledProviders []string
}

// TemplatesConfig gates the document template endpoints.
type TemplatesConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadSize := v.GetInt64("DOCUMENTS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 25 * 1024 * 1024
	}
	cfg.Documents = DocumentsConfig{
		StorageDir:       v.GetString("DOCUMENTS_STORAGE_DIR"),
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("DOCUMENTS_ALLOWED_MIME_TYPES")),
		SignedURLSecret:  v.GetString("DOCUMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("DOCUMENTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Compliance = ComplianceConfig{
		NSMEnabled:           v.GetBool("COMPLIANCE_NSM_ENABLED"),
		GDPREnabled:          v.GetBool("COMPLIANCE_GDPR_ENABLED"),
		ArchiveAfterDays:     v.GetInt("COMPLIANCE_ARCHIVE_AFTER_DAYS"),
		DeleteAfterDays:      v.GetInt("COMPLIANCE_DELETE_AFTER_DAYS"),
		DefaultRetentionDays: v.GetInt("COMPLIANCE_DEFAULT_RETENTION_DAYS"),
	}

	cfg.Archives = ArchivesConfig{
		ArtifactDir:       v.GetString("ARCHIVES_ARTIFACT_DIR"),
		WorkerConcurrency: v.GetInt("ARCHIVES_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("ARCHIVES_WORKER_RETRIES"),
	}

	cfg.Signatures = SignaturesConfig{
		EnabledProviders: splitAndTrim(v.GetString("SIGNATURES_ENABLED_PROVIDERS")),
	}

	cfg.Templates = TemplatesConfig{
		Enabled: v.GetBool("ENABLE_TEMPLATES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "document_platform")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DOCUMENTS_STORAGE_DIR", "./documents")
	v.SetDefault("DOCUMENTS_MAX_FILE_SIZE", 25*1024*1024)
	v.SetDefault("DOCUMENTS_ALLOWED_MIME_TYPES", "application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,image/jpeg,image/png,text/plain")
	v.SetDefault("DOCUMENTS_SIGNED_URL_SECRET", "dev_documents_secret")
	v.SetDefault("DOCUMENTS_SIGNED_URL_TTL", "30m")

	v.SetDefault("COMPLIANCE_NSM_ENABLED", true)
	v.SetDefault("COMPLIANCE_GDPR_ENABLED", true)
	v.SetDefault("COMPLIANCE_ARCHIVE_AFTER_DAYS", 365)
	v.SetDefault("COMPLIANCE_DELETE_AFTER_DAYS", 2555)
	v.SetDefault("COMPLIANCE_DEFAULT_RETENTION_DAYS", 0)

	v.SetDefault("ARCHIVES_ARTIFACT_DIR", "./archives")
	v.SetDefault("ARCHIVES_WORKER_CONCURRENCY", 2)
	v.SetDefault("ARCHIVES_WORKER_RETRIES", 3)

	v.SetDefault("SIGNATURES_ENABLED_PROVIDERS", "bankid,idporten,docusign,adobesign")
	v.SetDefault("ENABLE_TEMPLATES", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
