// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is constructed once at
// startup and treated as immutable afterwards.
type Config struct {
	// Server settings
	Port         int
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Authentication: when set, every endpoint except /health and /
	// requires this key via X-API-Key header or api_key query param.
	APIKey string

	// Extraction settings
	YTDLPPath      string
	ExtractTimeout time.Duration
	CookiesDir     string
	CookiesFile    string // optional explicit cookie file location

	// Origin fetch settings
	ManifestTimeout time.Duration
	RelayTimeout    time.Duration
	AllowedHosts    []string // extra relay allow-list suffixes
	UTLSDomains     []string // hosts fetched with a browser TLS fingerprint
	GlobalProxies   []string

	// Logging
	LogLevel string
	LogJSON  bool
}

// defaultAllowedHosts are the origin media/manifest domain suffixes the
// relay will fetch from. This allow-list is a security boundary.
var defaultAllowedHosts = []string{
	"googlevideo.com",
	"googleusercontent.com",
	"youtube.com",
	"ytimg.com",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	port := getEnvInt("PORT", 8000)
	cfg := &Config{
		Port:            port,
		BaseURL:         getEnvString("BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		APIKey:          os.Getenv("API_KEY"),
		YTDLPPath:       getEnvString("YTDLP_PATH", "yt-dlp"),
		ExtractTimeout:  getEnvDuration("EXTRACT_TIMEOUT", 45*time.Second),
		CookiesDir:      getEnvString("COOKIES_DIR", "data"),
		CookiesFile:     os.Getenv("COOKIES_FILE"),
		ManifestTimeout: getEnvDuration("MANIFEST_TIMEOUT", 20*time.Second),
		RelayTimeout:    getEnvDuration("RELAY_TIMEOUT", 60*time.Second),
		AllowedHosts:    append(append([]string(nil), defaultAllowedHosts...), getEnvStringSlice("ALLOWED_HOSTS", nil)...),
		UTLSDomains:     getEnvStringSlice("UTLS_DOMAINS", nil),
		GlobalProxies:   getEnvStringSlice("GLOBAL_PROXIES", nil),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		LogJSON:         getEnvBool("LOG_JSON", false),
	}

	// Legacy single proxy support
	if globalProxy := os.Getenv("GLOBAL_PROXY"); globalProxy != "" && len(cfg.GlobalProxies) == 0 {
		cfg.GlobalProxies = []string{globalProxy}
	}

	return cfg
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.ToLower(val) == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Try parsing as seconds first
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}
