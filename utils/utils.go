package utils

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of key, or the first fallback when unset or empty.
func GetEnv(key string, fallback ...string) string {
	value := os.Getenv(key)
	if value == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return value
}

// GetEnvFloat parses key as a float, returning fallback when unset or malformed.
func GetEnvFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvInt parses key as an int, returning fallback when unset or malformed.
func GetEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func GenerateUniqueID() uint32 {
	randGen := rand.New(rand.NewSource(time.Now().UnixNano()))
	return randGen.Uint32()
}

// GenerateSessionID returns an identifier of the form ppg_xxxxxxxx.
func GenerateSessionID() string {
	return fmt.Sprintf("ppg_%08x", GenerateUniqueID())
}

// CreateFolder creates folderPath and any missing parents.
func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}
