// Package env reads the few variables needed before typed config loads.
package env

import (
	"os"
	"strings"
)

const (
	LogFormat  = "LOG_FORMAT"
	DotEnvPath = "FOODAPP_DOTENV_PATH"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	return First(fallback, key)
}

// First returns the first non-blank value among keys, in order.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}

// DotEnvFiles lists the files godotenv should load: the comma separated
// FOODAPP_DOTENV_PATH, or .env when that is unset.
func DotEnvFiles() []string {
	var files []string
	for _, f := range strings.Split(Get(DotEnvPath, ".env"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}
