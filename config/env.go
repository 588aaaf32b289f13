package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()
	log.Println("Environment variables loaded (if .env present)")
}

// GetEnv returns the variable or def when unset or empty.
func GetEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

func GetEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(GetEnv(key, "")); err == nil {
		return v
	}
	return def
}
