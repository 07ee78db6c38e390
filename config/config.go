package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultScamPhrases is the ordered phrase list scanned by the scorer.
// Order matters: the first phrase found in a listing wins.
var DefaultScamPhrases = []string{
	"rate me first",
	"rate me before",
	"leave review first",
	"serious buyers only",
	"serious inquiries only",
	"dm me",
	"message me on whatsapp",
	"contact me on",
	"telegram",
	"cash only",
	"no lowballers",
	"price is firm",
	"first come first serve",
	"moving sale",
	"must go today",
	"urgent sale",
	"no trades",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StartURL  string
	ChromeBin string
	Headless  bool
	ScanFile  string

	ScanInterval  time.Duration
	SettleDelay   time.Duration
	AnalysisDelay time.Duration
	WaitTimeout   time.Duration
	MaxRetries    int

	StoreBackend string
	SQLitePath   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ScanLogPath string
	LogLevel    string

	RecentYearCutoff   int
	OldAccountCutoff   int
	ScamPhrases        []string
	RatingPhraseMarker string
	Weights            map[string]int
}

// weightEnv maps rule ids to the env vars that override their weights.
var weightEnv = map[string]string{
	"newAccount":            "WEIGHT_NEW_ACCOUNT",
	"singleListing":         "WEIGHT_SINGLE_LISTING",
	"fewListings":           "WEIGHT_FEW_LISTINGS",
	"oldAccountFewListings": "WEIGHT_OLD_ACCOUNT_FEW_LISTINGS",
	"scamPhrase":            "WEIGHT_SCAM_PHRASE",
	"askingForRating":       "WEIGHT_ASKING_FOR_RATING",
	"noRatings":             "WEIGHT_NO_RATINGS",
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		StartURL:  getEnv("START_URL", "https://www.facebook.com/marketplace/"),
		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", false),
		ScanFile:  getEnv("SCAN_FILE", ""),

		ScanInterval:  getEnvDuration("SCAN_INTERVAL", 2*time.Second),
		SettleDelay:   getEnvDuration("SETTLE_DELAY", 500*time.Millisecond),
		AnalysisDelay: getEnvDuration("ANALYSIS_DELAY", time.Second),
		WaitTimeout:   getEnvDuration("WAIT_TIMEOUT", 5*time.Second),
		MaxRetries:    getEnvInt("MAX_RETRIES", 3),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/trust-checker.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "checker"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "checker123"),
		PostgresDB:       getEnv("POSTGRES_DB", "trust_checker"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ScanLogPath: getEnv("SCAN_LOG_PATH", "./output/scans.csv"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		RecentYearCutoff:   getEnvInt("RECENT_YEAR_CUTOFF", 2024),
		OldAccountCutoff:   getEnvInt("OLD_ACCOUNT_CUTOFF", 2023),
		ScamPhrases:        getEnvList("SCAM_PHRASES", DefaultScamPhrases),
		RatingPhraseMarker: getEnv("RATING_PHRASE_MARKER", "rate"),
		Weights:            make(map[string]int),
	}

	for id, key := range weightEnv {
		if n := getEnvInt(key, 0); n != 0 {
			cfg.Weights[id] = n
		}
	}

	return cfg
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

// getEnvList splits a "|"-separated list. Phrases may contain commas.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(val, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
