package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
	LogFormat    string

	// Admin API auth
	AdminAPIKey string
	JWTSecret   string
	JWTExpiry   time.Duration

	// Database configuration
	PostgresURL string

	// Extractor (Gemini) configuration
	GeminiAPIKey  string
	GeminiModelID string
	GeminiTimeout time.Duration

	// Mailbox polling configuration
	PollInterval   time.Duration
	GmailQuery     string
	MailAfterDate  string // YYYY-MM-DD, empty disables the filter
	DownloadDir    string
	MaxWorkers     int
	GoogleCredFile string
	GoogleToken    string // path to cached oauth token JSON

	// File store configuration
	FileStoreBackend string // "drive" or "s3"
	DriveRootFolder  string
	DriveLeafFolder  string
	S3Endpoint       string
	S3AccessKeyID    string
	S3AccessSecret   string
	S3Bucket         string
	S3Region         string

	// Task board (Trello) configuration
	TrelloAPIKey  string
	TrelloToken   string
	TrelloListID  string
	TrelloTimeout time.Duration

	// Spreadsheet configuration
	SpreadsheetID    string
	SummarySheetName string

	// Reporting configuration
	ReportDayOfMonth int
	ReportHour       int

	// Payer directory: JSON object mapping NIP -> display name
	PayerDirectory map[string]string
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file. Using environment variables.")
	}

	config := &Config{
		// Server configuration
		Port:         getEnvInt("PORT", 8080),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		LogLevel:     getEnvString("LOG_LEVEL", "info"),
		LogFormat:    getEnvString("LOG_FORMAT", "json"),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTExpiry:   getEnvDuration("JWT_EXPIRY", 24*time.Hour),

		PostgresURL: os.Getenv("POSTGRES_DB_URL"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModelID: getEnvString("GEMINI_MODEL_ID", "gemini-2.5-pro"),
		GeminiTimeout: getEnvDuration("GEMINI_TIMEOUT", 90*time.Second),

		PollInterval:   getEnvDuration("POLL_INTERVAL", 20*time.Second),
		GmailQuery:     getEnvString("GMAIL_QUERY", "has:attachment label:inbox"),
		MailAfterDate:  os.Getenv("MAIL_AFTER_DATE"),
		DownloadDir:    getEnvString("DOWNLOAD_DIR", "temp_downloads"),
		MaxWorkers:     getEnvInt("MAX_WORKERS", 5),
		GoogleCredFile: getEnvString("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleToken:    getEnvString("GOOGLE_TOKEN_FILE", "token.json"),

		FileStoreBackend: getEnvString("FILE_STORE", "drive"),
		DriveRootFolder:  getEnvString("DRIVE_ROOT_FOLDER", "Accounting Documents"),
		DriveLeafFolder:  getEnvString("DRIVE_INVOICE_FOLDER", "Invoices"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:    os.Getenv("S3_ACCESS_KEY_ID"),
		S3AccessSecret:   os.Getenv("S3_ACCESS_KEY_SECRET"),
		S3Bucket:         getEnvString("S3_BUCKET", "invoices"),
		S3Region:         getEnvString("S3_REGION", "eu-central-1"),

		TrelloAPIKey:  os.Getenv("TRELLO_API_KEY"),
		TrelloToken:   os.Getenv("TRELLO_API_TOKEN"),
		TrelloListID:  os.Getenv("TRELLO_INVOICE_LIST_ID"),
		TrelloTimeout: getEnvDuration("TRELLO_TIMEOUT", 30*time.Second),

		SpreadsheetID:    os.Getenv("GOOGLE_SHEET_ID"),
		SummarySheetName: getEnvString("VAT_SUMMARY_SHEET", "VAT Report"),

		ReportDayOfMonth: getEnvInt("REPORT_DAY_OF_MONTH", 15),
		ReportHour:       getEnvInt("REPORT_HOUR", 9),
	}

	payers, err := parsePayerDirectory(os.Getenv("PAYER_DIRECTORY"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYER_DIRECTORY: %w", err)
	}
	config.PayerDirectory = payers

	validateConfig(config)

	return config, nil
}

// parsePayerDirectory decodes the NIP -> payer name mapping from a JSON
// object. An empty value yields an empty directory, which disables payer
// identification but is not an error.
func parsePayerDirectory(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.PostgresURL == "" {
		log.Println("Warning: POSTGRES_DB_URL is not set. Database connections will fail.")
	}
	if config.GeminiAPIKey == "" {
		log.Println("Warning: No Gemini API key provided. Document extraction will fail.")
	}
	if config.SpreadsheetID == "" {
		log.Println("Warning: No spreadsheet ID provided. Sheet entries will be skipped.")
	}
	if config.TrelloAPIKey == "" || config.TrelloToken == "" {
		log.Println("Warning: Trello credentials missing. Task cards will not be created.")
	}
	if config.FileStoreBackend == "s3" && (config.S3Endpoint == "" || config.S3AccessKeyID == "") {
		log.Println("Warning: S3 file store selected but S3 configuration is incomplete.")
	}
	if config.AdminAPIKey == "" {
		log.Println("Warning: ADMIN_API_KEY is not set. Admin API token exchange will be disabled.")
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvDuration gets a duration in seconds (or Go duration syntax) from an
// environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}

	log.Printf("Invalid value for %s: %s, using default: %s", key, valueStr, defaultValue)
	return defaultValue
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
