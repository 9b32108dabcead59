package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"battleship/internal/board"
)

// Config holds all configuration for a game process
type Config struct {
	Role string
	Host string
	Port int

	FieldWidth  int
	FieldHeight int
	Fleet       board.Fleet

	GameTimeout         time.Duration
	WatchdogInterval    time.Duration
	PollInterval        time.Duration
	FirstMove           string
	ValidateClientShips bool

	HTTPPort    int
	RedisURL    string
	NATSURL     string
	DatabaseURL string
	LogFile     string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Role:                strings.ToLower(getEnv("BATTLESHIP_ROLE", "server")),
		Host:                getEnv("BATTLESHIP_HOST", "127.0.0.1"),
		Port:                getEnvAsInt("BATTLESHIP_PORT", 8888),
		FieldWidth:          getEnvAsInt("FIELD_WIDTH", 10),
		FieldHeight:         getEnvAsInt("FIELD_HEIGHT", 10),
		Fleet:               getEnvAsFleet("FLEET", board.DefaultFleet()),
		GameTimeout:         getEnvAsDuration("GAME_TIMEOUT", 60*time.Second),
		WatchdogInterval:    getEnvAsDuration("WATCHDOG_INTERVAL", time.Second),
		PollInterval:        getEnvAsDuration("POLL_INTERVAL", 100*time.Millisecond),
		FirstMove:           strings.ToLower(getEnv("FIRST_MOVE", "client")),
		ValidateClientShips: getEnvAsBool("VALIDATE_CLIENT_SHIPS", false),
		HTTPPort:            getEnvAsInt("HTTP_PORT", 0),
		RedisURL:            getEnv("REDIS_URL", ""),
		NATSURL:             getEnv("NATS_URL", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
	}
	cfg.LogFile = getEnv("LOG_FILE", fmt.Sprintf("battleship_%s.log", cfg.Role))
	return cfg
}

// Addr returns host:port of the game endpoint
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ListenAddr returns the address the server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate reports settings no game can be played with
func (c *Config) Validate() error {
	if c.Role != "server" && c.Role != "client" {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if c.FieldWidth <= 0 || c.FieldHeight <= 0 {
		return fmt.Errorf("invalid field size %dx%d", c.FieldWidth, c.FieldHeight)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.FirstMove {
	case "client", "server", "random":
	default:
		return fmt.Errorf("invalid first move %q", c.FirstMove)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("[Config] Invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("[Config] Invalid %s=%q, using %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Printf("[Config] Invalid %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsFleet(key string, defaultValue board.Fleet) board.Fleet {
	if value := os.Getenv(key); value != "" {
		if fleet, err := board.ParseFleet(value); err == nil && len(fleet) > 0 {
			return fleet
		}
		log.Printf("[Config] Invalid %s=%q, using default fleet", key, value)
	}
	return defaultValue
}
