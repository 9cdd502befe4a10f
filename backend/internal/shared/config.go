// ============================================================================
// backend/internal/shared/config.go
// Gradebook service configuration and environment variable helpers
// ============================================================================

package shared

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMongo  = "mongo"
	StoreREST   = "rest"
	StoreMemory = "memory"
)

// ============================================================================
// Configuration Structs
// ============================================================================

// ServiceConfig holds the configuration of the gradebook service
type ServiceConfig struct {
	ServiceName string
	ServicePort string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error

	MongoDB   MongoConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Gradebook GradebookConfig
}

// SecurityConfig holds bearer token settings
type SecurityConfig struct {
	JWTSecret    string
	JWTIssuer    string
	AuthDisabled bool // development only
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

// GradebookConfig selects the score store and tunes matrix views
type GradebookConfig struct {
	Store            string // mongo, rest, memory
	RemoteURL        string
	RemoteToken      string
	RemoteTimeout    time.Duration
	SlotsPerSemester int
	ViewTTL          time.Duration
	SweepInterval    time.Duration
	ShutdownTimeout  time.Duration
}

// ============================================================================
// Configuration Loading Functions
// ============================================================================

// LoadEnv loads environment variables from .env file
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("WARN: %s file not found, using system environment variables", envFile)
		return err
	}

	log.Printf("INFO: Loaded environment from %s", envFile)
	return nil
}

// LoadServiceConfig reads the service configuration from the environment
func LoadServiceConfig(serviceName string) (*ServiceConfig, error) {
	config := &ServiceConfig{
		ServiceName: serviceName,
		ServicePort: GetEnv("SERVICE_PORT", DefaultServicePort),
		Environment: GetEnv("ENVIRONMENT", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
	}

	config.Gradebook = GradebookConfig{
		Store:            strings.ToLower(GetEnv("GRADE_STORE", StoreMongo)),
		RemoteURL:        GetEnv("GRADE_REMOTE_URL", ""),
		RemoteToken:      GetEnv("GRADE_REMOTE_TOKEN", ""),
		RemoteTimeout:    GetDurationEnv("GRADE_REMOTE_TIMEOUT", 0),
		SlotsPerSemester: GetIntEnv("GRADE_SLOTS_PER_SEMESTER", 10),
		ViewTTL:          GetDurationEnv("GRADE_VIEW_TTL", 2*time.Hour),
		SweepInterval:    GetDurationEnv("GRADE_SWEEP_INTERVAL", 5*time.Minute),
		ShutdownTimeout:  GetDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	config.MongoDB = MongoConfig{
		URI:            GetEnv("MONGO_URI", ""),
		Database:       GetEnv("MONGO_DB_NAME", "schooldash"),
		ConnectTimeout: GetDurationEnv("MONGO_CONNECT_TIMEOUT", 20*time.Second),
		MaxPoolSize:    uint64(GetIntEnv("MONGO_MAX_POOL_SIZE", 50)),
		MinPoolSize:    uint64(GetIntEnv("MONGO_MIN_POOL_SIZE", 10)),
		MaxIdleTime:    GetDurationEnv("MONGO_MAX_IDLE_TIME", 30*time.Second),
	}

	config.Security = SecurityConfig{
		JWTSecret:    GetEnv("JWT_SECRET", ""),
		JWTIssuer:    GetEnv("JWT_ISSUER", ""),
		AuthDisabled: GetBoolEnv("AUTH_DISABLED", false),
	}

	config.CORS = CORSConfig{
		AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods:   GetStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders:   GetStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           GetIntEnv("CORS_MAX_AGE", 3600),
	}

	if err := ValidateServiceConfig(config); err != nil {
		return nil, err
	}
	SetLogLevel(config.LogLevel)
	return config, nil
}

// ============================================================================
// Environment Variable Helper Functions
// ============================================================================

// GetEnv retrieves an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv retrieves an integer environment variable or returns a default value
func GetIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("WARN: invalid integer for %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetBoolEnv retrieves a boolean environment variable or returns a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("WARN: invalid boolean for %s: %s, using default %t", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetDurationEnv retrieves a duration such as "30s" or "5m"
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("WARN: invalid duration for %s: %s, using default %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetStringSliceEnv retrieves a comma-separated list or returns a default value
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// ============================================================================
// Configuration Validation
// ============================================================================

// ValidateServiceConfig checks the values each store backend depends on
func ValidateServiceConfig(config *ServiceConfig) error {
	if config.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if config.ServicePort == "" {
		return fmt.Errorf("service port is required")
	}

	switch config.Gradebook.Store {
	case StoreMongo:
		if config.MongoDB.URI == "" {
			return fmt.Errorf("MONGO_URI environment variable is required for the mongo store")
		}
		if config.MongoDB.Database == "" {
			return fmt.Errorf("MongoDB database name is required")
		}
	case StoreREST:
		if config.Gradebook.RemoteURL == "" {
			return fmt.Errorf("GRADE_REMOTE_URL environment variable is required for the rest store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown GRADE_STORE %q (want mongo, rest or memory)", config.Gradebook.Store)
	}

	if n := config.Gradebook.SlotsPerSemester; n < 1 || n > 10 {
		return fmt.Errorf("GRADE_SLOTS_PER_SEMESTER must be between 1 and 10, got %d", n)
	}

	if config.Security.JWTSecret == "" && !(config.Security.AuthDisabled && IsDevelopment(config)) {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

// ============================================================================
// Configuration Display (for debugging)
// ============================================================================

// PrintConfig prints configuration (sanitized) for debugging
func PrintConfig(config *ServiceConfig) {
	log.Println("=== Service Configuration ===")
	log.Printf("Service Name: %s", config.ServiceName)
	log.Printf("Service Port: %s", config.ServicePort)
	log.Printf("Environment: %s", config.Environment)
	log.Printf("Log Level: %s", config.LogLevel)
	log.Println("=== Gradebook Configuration ===")
	log.Printf("Store: %s", config.Gradebook.Store)
	switch config.Gradebook.Store {
	case StoreMongo:
		log.Printf("Database: %s", config.MongoDB.Database)
		log.Printf("Max Pool Size: %d", config.MongoDB.MaxPoolSize)
	case StoreREST:
		log.Printf("Remote URL: %s", config.Gradebook.RemoteURL)
		log.Printf("Remote Timeout: %v", config.Gradebook.RemoteTimeout)
	}
	log.Printf("Slots Per Semester: %d", config.Gradebook.SlotsPerSemester)
	log.Printf("View TTL: %v", config.Gradebook.ViewTTL)
	log.Println("=== CORS Configuration ===")
	log.Printf("Allowed Origins: %v", config.CORS.AllowedOrigins)
	log.Printf("Allow Credentials: %t", config.CORS.AllowCredentials)
	log.Println("=============================")
}

// DefaultServicePort is the HTTP port of the gradebook service
const DefaultServicePort = "8080"

// ============================================================================
// Environment-Specific Configuration
// ============================================================================

// IsDevelopment checks if running in development environment
func IsDevelopment(config *ServiceConfig) bool {
	return config.Environment == "development"
}

var debugEnabled atomic.Bool

// SetLogLevel turns Debugf output on for "debug".
func SetLogLevel(level string) {
	debugEnabled.Store(strings.EqualFold(level, "debug"))
}

// Debugf logs only when LOG_LEVEL is debug.
func Debugf(format string, args ...interface{}) {
	if debugEnabled.Load() {
		log.Printf("DEBUG: "+format, args...)
	}
}
