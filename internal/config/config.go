package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage       string        `yaml:"storage"` // mongo or memory
	MongoURI      string        `yaml:"mongoUri"`
	MongoDatabase string        `yaml:"mongoDatabase"`
	RedisAddr     string        `yaml:"redisAddr"`
	NATSURL       string        `yaml:"natsUrl"`
	HTTPPort      string        `yaml:"httpPort"`
	JWTSecret     string        `yaml:"-"`
	TokenTTL      time.Duration `yaml:"tokenTtl"`
	CORSOrigins   []string      `yaml:"corsOrigins"`
	LogLevel      string        `yaml:"logLevel"`
	Room          RoomConfig    `yaml:"room"`
}

// Load reads .env (if present), then the optional YAML file named by
// STUDYROOM_CONFIG, then environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := &Config{
		Storage:       "mongo",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "studyroom",
		RedisAddr:     "localhost:6379",
		HTTPPort:      "5000",
		TokenTTL:      24 * time.Hour,
		CORSOrigins:   []string{"*"},
		LogLevel:      "info",
		Room:          DefaultRoomConfig(),
	}

	if path := os.Getenv("STUDYROOM_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Storage = getEnv("STORAGE", cfg.Storage)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.RedisAddr = strings.TrimPrefix(getEnv("REDIS_URI", cfg.RedisAddr), "redis://")
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.HTTPPort = getEnv("PORT", cfg.HTTPPort)
	cfg.JWTSecret = getEnv("JWT_SECRET", "supersecret")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	if hours := getEnvAsInt("TOKEN_TTL_HOURS", 0); hours > 0 {
		cfg.TokenTTL = time.Duration(hours) * time.Hour
	}
	if n := getEnvAsInt("CHAT_HISTORY_LIMIT", 0); n > 0 {
		cfg.Room.HistoryLimit = n
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
