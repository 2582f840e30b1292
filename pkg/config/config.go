package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Mailjet      MailjetConfig
	Push         PushConfig
	Redis        RedisConfig
	Storage      StorageConfig
	Notification NotificationConfig
}

type MailjetConfig struct {
	MailjetBaseUrl           string
	MailjetBasicAuthUsername string
	MailjetBasicAuthPassword string
	MailjetSenderEmail       string
	MailjetSenderName        string
}

type PushConfig struct {
	ExpoBaseUrl     string
	ExpoAccessToken string
}

type AppConfig struct {
	Name                 string
	Version              string
	Environment          string
	AppDeploymentUrl     string
	VerificationTokenTTL time.Duration
	AllowOrigins         []string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
	TTL       time.Duration
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type StorageConfig struct {
	UploadDir string
	PublicUrl string
}

type NotificationConfig struct {
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	verificationTTL, err := getDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	jwtTTL, err := getDuration("JWT_TTL", 72*time.Hour)
	if err != nil {
		return nil, err
	}

	notificationTimeout, err := getDuration("NOTIFICATION_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	deploymentUrl := getEnv("APP_DEPLOYMENT_URL", "")

	cfg := &Config{
		App: AppConfig{
			Name:                 getEnv("APP_NAME", "Storefront API"),
			Version:              getEnv("APP_VERSION", "1.0.0"),
			Environment:          getEnv("APP_ENV", "development"),
			AppDeploymentUrl:     deploymentUrl,
			VerificationTokenTTL: verificationTTL,
			AllowOrigins:         []string{getEnv("ADMIN_ORIGIN", "http://localhost:3000"), getEnv("STOREFRONT_ORIGIN", "http://localhost:8081")},
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
			TTL:       jwtTTL,
		},
		Mailjet: MailjetConfig{
			MailjetBaseUrl:           getEnv("MAILJET_BASE_URL", "https://api.mailjet.com"),
			MailjetBasicAuthUsername: getEnv("MAILJET_BASIC_AUTH_USERNAME", ""),
			MailjetBasicAuthPassword: getEnv("MAILJET_BASIC_AUTH_PASSWORD", ""),
			MailjetSenderEmail:       getEnv("MAILJET_SENDER_EMAIL", ""),
			MailjetSenderName:        getEnv("MAILJET_SENDER_NAME", ""),
		},
		Push: PushConfig{
			ExpoBaseUrl:     getEnv("EXPO_BASE_URL", "https://exp.host"),
			ExpoAccessToken: getEnv("EXPO_ACCESS_TOKEN", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
			PublicUrl: getEnv("UPLOAD_PUBLIC_URL", deploymentUrl+"/uploads"),
		},
		Notification: NotificationConfig{
			Timeout: notificationTimeout,
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.App.AppDeploymentUrl == "" {
		return nil, errors.New("missing app deployment url")
	}

	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}
