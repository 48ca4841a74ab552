package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Upload    UploadConfig
	Detection DetectionConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	Environment    string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL   string
	Debug bool
}

type JWTConfig struct {
	Secret          string
	Expiry          string
	Required        bool
	DefaultEmail    string
	DefaultPassword string
}

type UploadConfig struct {
	Folder        string
	MaxContentLen int64
}

// DetectionConfig holds the settings shared with the external video
// detection pipeline. Only the ingest endpoints read them here.
type DetectionConfig struct {
	ModelPath           string
	ConfidenceThreshold float64
	MaxVideoStreams     int
	FrameRate           int
	IngestEnabled       bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           getEnv("PORT", "5000"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:   getEnv("DATABASE_URL", "sqlite:///parking_violations.db"),
			Debug: getEnvAsBool("DB_DEBUG", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("SECRET_KEY", "dev-secret-key"),
			Expiry:          getEnv("JWT_EXPIRY", "24h"),
			Required:        getEnvAsBool("AUTH_REQUIRED", false),
			DefaultEmail:    getEnv("DEFAULT_OPERATOR_EMAIL", "admin@parking.local"),
			DefaultPassword: getEnv("DEFAULT_OPERATOR_PASSWORD", "changeme"),
		},
		Upload: UploadConfig{
			Folder:        getEnv("UPLOAD_FOLDER", "static/uploads"),
			MaxContentLen: int64(getEnvAsInt("MAX_CONTENT_LENGTH", 16*1024*1024)),
		},
		Detection: DetectionConfig{
			ModelPath:           getEnv("AI_MODEL_PATH", "models/parking_detection.pt"),
			ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.7),
			MaxVideoStreams:     getEnvAsInt("MAX_VIDEO_STREAMS", 4),
			FrameRate:           getEnvAsInt("FRAME_RATE", 30),
			IngestEnabled:       getEnvAsBool("INGEST_ENABLED", false),
		},
	}
}

// TokenTTL parses the JWT expiry, falling back to 24h on a bad value.
func (c JWTConfig) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Expiry)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("invalid int for %s, defaulting to %d\n", key, defaultValue)
		return defaultValue
	}
	return val
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("invalid float for %s, defaulting to %v\n", key, defaultValue)
		return defaultValue
	}
	return val
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("invalid bool for %s, defaulting to %v\n", key, defaultValue)
		return defaultValue
	}
	return val
}

func getEnvAsList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
