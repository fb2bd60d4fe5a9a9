package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/ocr"
)

type Config struct {
	// Validation rules
	DefaultCurrency    string   `validate:"required,len=3,alpha"`
	AllowedCurrencies  []string `validate:"required,min=1,dive,len=3,alpha"`
	AmountToleranceAbs float64  `validate:"gte=0"`
	AmountToleranceRel float64  `validate:"gte=0,lt=1"`

	// Extraction
	LineItemScanDepth int    `validate:"gte=1,lte=100"`
	BatchWorkers      int    `validate:"gte=1,lte=256"`
	OCREngine         string `validate:"oneof=pdf vision documentai"`
	MaxDocumentSizeMB int    `validate:"gte=1,lte=20"`

	// Google Cloud Configuration
	GoogleCloudProject    string `validate:"required_if=OCREngine documentai"`
	GoogleCloudLocation   string `validate:"required"`
	DocumentAIProcessorID string `validate:"required_if=OCREngine documentai"`

	// Google Sheets Configuration
	GoogleSheetURL       string `validate:"omitempty,url"`
	GoogleSheetWorksheet string

	// HTTP server
	HTTPAddr           string   `validate:"required"`
	CORSAllowedOrigins []string `validate:"dive,url"`
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration

	// Logging Configuration
	LogLevel      string `validate:"oneof=trace debug info warn error fatal panic"`
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

func Load() (*Config, error) {
	config := &Config{
		DefaultCurrency:       strings.ToUpper(getEnv("DEFAULT_CURRENCY", invoice.DefaultCurrency)),
		AllowedCurrencies:     getList("ALLOWED_CURRENCIES", invoice.DefaultAllowedCurrencies, strings.ToUpper),
		AmountToleranceAbs:    getFloat("AMOUNT_TOLERANCE_ABS", invoice.DefaultToleranceAbs),
		AmountToleranceRel:    getFloat("AMOUNT_TOLERANCE_REL", invoice.DefaultToleranceRel),
		LineItemScanDepth:     getInt("LINE_ITEM_SCAN_DEPTH", invoice.DefaultScanDepth),
		BatchWorkers:          getInt("BATCH_WORKERS", invoice.DefaultBatchWorkers),
		OCREngine:             strings.ToLower(getEnv("OCR_ENGINE", ocr.EnginePDF)),
		MaxDocumentSizeMB:     getInt("MAX_DOCUMENT_SIZE_MB", 20),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Validation"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8000"),
		CORSAllowedOrigins:    getList("CORS_ALLOWED_ORIGINS", defaultOrigins, nil),
		ReadTimeout:           getDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:          getDuration("HTTP_WRITE_TIMEOUT", 2*time.Minute),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

var validate = validator.New()

func (c *Config) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(messages, "; "))
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// ValidatorConfig returns the rule table for invoice validation.
func (c *Config) ValidatorConfig() invoice.ValidatorConfig {
	return invoice.ValidatorConfig{
		AllowedCurrencies: c.AllowedCurrencies,
		DefaultCurrency:   c.DefaultCurrency,
		ToleranceAbs:      c.AmountToleranceAbs,
		ToleranceRel:      c.AmountToleranceRel,
		Workers:           c.BatchWorkers,
	}
}

// ExtractorConfig returns the field extractor settings.
func (c *Config) ExtractorConfig() invoice.ExtractorConfig {
	return invoice.ExtractorConfig{
		LineItems:      invoice.NewSpacingLineItems(invoice.DefaultHeaderTerms, c.LineItemScanDepth),
		NormalizeDates: true,
	}
}

// ProcessorConfig returns the folder processing settings.
func (c *Config) ProcessorConfig() invoice.ProcessorConfig {
	return invoice.ProcessorConfig{
		Workers:          c.BatchWorkers,
		MaxDocumentBytes: int64(c.MaxDocumentSizeMB) * 1024 * 1024,
	}
}

// OCRConfig returns the text source settings.
func (c *Config) OCRConfig() ocr.Config {
	cfg := ocr.DefaultConfig()
	cfg.Engine = c.OCREngine
	cfg.ProjectID = c.GoogleCloudProject
	cfg.Location = c.GoogleCloudLocation
	cfg.ProcessorID = c.DocumentAIProcessorID
	return cfg
}

// Default returns the configuration used when the environment cannot be loaded.
func Default() *Config {
	return &Config{
		DefaultCurrency:     invoice.DefaultCurrency,
		AllowedCurrencies:   invoice.DefaultAllowedCurrencies,
		AmountToleranceAbs:  invoice.DefaultToleranceAbs,
		AmountToleranceRel:  invoice.DefaultToleranceRel,
		LineItemScanDepth:   invoice.DefaultScanDepth,
		BatchWorkers:        invoice.DefaultBatchWorkers,
		OCREngine:           ocr.EnginePDF,
		MaxDocumentSizeMB:   20,
		GoogleCloudLocation: "us",
		HTTPAddr:            ":8000",
		CORSAllowedOrigins:  defaultOrigins,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        2 * time.Minute,
		LogLevel:            "info",
		LogFormat:           "console",
		LogTimeFormat:       time.RFC3339,
		LogOutput:           "stderr",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string, defaultValue []string, transform func(string) string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if transform != nil {
			part = transform(part)
		}
		out = append(out, part)
	}
	return out
}
