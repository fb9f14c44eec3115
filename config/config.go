package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBName    string
	JWTKey    string
	SaltRound int

	EmailSender string
	Password    string // SMTP Password

	PaystackBaseURL   string
	PaystackSecretKey string

	GatewayTimeoutSeconds int // outbound gateway call timeout
	OrderExpiryMinutes    int // pending/awaiting orders older than this are expired

	Currency     string
	CertCacheDir string // rendered certificate PDFs are cached here
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	// Initialize AppConfig with values from environment variables
	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		DBName:    getEnv("DB_NAME", "campus.db"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		EmailSender: getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:    getEnv("PASSWORD", "defaultSecret"),

		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", "defaultSecret"),

		GatewayTimeoutSeconds: getEnvInt("GATEWAY_TIMEOUT_SECONDS", 15),
		OrderExpiryMinutes:    getEnvInt("ORDER_EXPIRY_MINUTES", 60),

		Currency:     getEnv("CURRENCY", "GHS"),
		CertCacheDir: getEnv("CERT_CACHE_DIR", "./public/certificates"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.PaystackSecretKey == "defaultSecret" {
		log.Println("Warning: Using default PAYSTACK_SECRET_KEY. Gateway calls and webhook signatures will not validate.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
