// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/ppo-client/internal/core/ppo"
)

// Config is read from the environment; CLI flags override individual fields.
type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	Endpoint       string
	HTTPTimeout    time.Duration
	H3Res          int
	MetricsEnabled bool
}

func FromEnv() Config {
	res := getint("H3_RES", -1)
	if res > 15 {
		res = 15
	}
	if res < -1 {
		res = -1
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		Endpoint:       getenv("PPO_ENDPOINT", ppo.DefaultEndpoint),
		HTTPTimeout:    getduration("HTTP_TIMEOUT", 5*time.Minute),
		H3Res:          res,
		MetricsEnabled: getbool("METRICS_ENABLED", true),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
