package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	StoreDriver    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	JWTSecret      []byte
	TokenTTL       time.Duration
	AllowedOrigins []string
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg := Config{
		Port:          getenv("PORT", ":8080"),
		StoreDriver:   getenv("STORE_DRIVER", "mongo"),
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGODB_DB", "lifeassistant"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:      72 * time.Hour,
	}
	if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.New("TOKEN_TTL: " + err.Error())
		}
		cfg.TokenTTL = ttl
	}
	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	switch cfg.StoreDriver {
	case "mongo":
		if len(cfg.JWTSecret) == 0 {
			return Config{}, errors.New("JWT_SECRET must be set")
		}
	case "memory":
		if len(cfg.JWTSecret) == 0 {
			log.Println("JWT_SECRET not set; using an insecure development secret")
			cfg.JWTSecret = []byte("dev-only-secret")
		}
	default:
		return Config{}, errors.New("STORE_DRIVER must be mongo or memory")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
