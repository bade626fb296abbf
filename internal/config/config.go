package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB     DBConfig
	MinIO  MinIOConfig
	JWT    JWTConfig
	Server ServerConfig
	Limits LimitsConfig
	SSO    SSOConfig
}

type DBConfig struct {
	// Driver selects the backing store: "sqlite" (default) or "postgres".
	Driver   string
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port        string
	FrontendURL string
}

type LimitsConfig struct {
	// MaxFileBytes is the per-file upload ceiling; uploads above it are
	// rejected before any storage call.
	MaxFileBytes int64
	// QuotaBytes is the total byte budget used for usage percentages.
	QuotaBytes int64
	// ShareTTLHours is the default share link lifetime.
	ShareTTLHours int
}

type SSOConfig struct {
	Google OAuthProviderConfig
	GitHub OAuthProviderConfig
}

type OAuthProviderConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "filedesk.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "filedesk"),
			Password: getEnv("DB_PASSWORD", "filedesk_secret"),
			Name:     getEnv("DB_NAME", "filedesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "filedesk"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "filedesk_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "files"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3001"),
		},
		Limits: LimitsConfig{
			MaxFileBytes:  getEnvAsInt64("MAX_FILE_BYTES", 50*1024*1024),
			QuotaBytes:    getEnvAsInt64("STORAGE_QUOTA_BYTES", 1*1024*1024*1024),
			ShareTTLHours: getEnvAsInt("SHARE_TTL_HOURS", 24),
		},
		SSO: SSOConfig{
			Google: OAuthProviderConfig{
				Enabled:      getEnvAsBool("SSO_GOOGLE_ENABLED", false),
				ClientID:     getEnv("SSO_GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("SSO_GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("SSO_GOOGLE_REDIRECT_URL", ""),
				Scopes:       getEnv("SSO_GOOGLE_SCOPES", "openid,profile,email"),
			},
			GitHub: OAuthProviderConfig{
				Enabled:      getEnvAsBool("SSO_GITHUB_ENABLED", false),
				ClientID:     getEnv("SSO_GITHUB_CLIENT_ID", ""),
				ClientSecret: getEnv("SSO_GITHUB_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("SSO_GITHUB_REDIRECT_URL", ""),
				Scopes:       getEnv("SSO_GITHUB_SCOPES", "read:user,user:email"),
			},
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
