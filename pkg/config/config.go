// Package config loads the service configuration from defaults, an
// optional YAML file, an optional .env file and the environment, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gardar/searchpdf/pkg/gdocai"
	"github.com/gardar/searchpdf/pkg/ocrmypdf"
	"github.com/gardar/searchpdf/pkg/recognize"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Storage    StorageConfig   `yaml:"storage"`
	OCR        OCRConfig       `yaml:"ocr"`
	OCRmyPDF   ocrmypdf.Config `yaml:"ocrmypdf"`
	DocumentAI gdocai.Config   `yaml:"documentai"`
	LogLevel   string          `yaml:"log_level"` // debug, info, warn or error
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	StaticDir      string        `yaml:"static_dir"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Workers        int           `yaml:"workers"`         // Documents processed at once
	RequestTimeout time.Duration `yaml:"request_timeout"` // Processing budget per document
}

// StorageConfig configures where artifacts live and for how long.
type StorageConfig struct {
	Root      string        `yaml:"root"`
	Retention time.Duration `yaml:"retention"`
}

// OCRConfig configures recognition and the text layer fallback.
type OCRConfig struct {
	Language        string        `yaml:"language"`
	Engine          string        `yaml:"engine"` // tesseract, gosseract or documentai
	Strict          bool          `yaml:"strict"` // Restrict recognition to the strict allowlist
	DisableOCRmyPDF bool          `yaml:"disable_ocrmypdf"`
	RenderFactor    float64       `yaml:"render_factor"`
	MinPageChars    int           `yaml:"min_page_chars"`
	MinConfidence   float64       `yaml:"min_confidence"`
	PageWorkers     int           `yaml:"page_workers"`
	Timeout         time.Duration `yaml:"timeout"` // Per page render and tesseract call
	LayerName       string        `yaml:"layer_name"`
	Force           bool          `yaml:"force"` // Rewrite pages that already carry our layer
	Debug           bool          `yaml:"debug"` // Draw the text layer visibly
}

// DefaultOCRTimeout bounds one page render or tesseract call.
const DefaultOCRTimeout = 300 * time.Second

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			StaticDir:      "static",
			MaxUploadBytes: 20 << 20,
			Workers:        2,
			RequestTimeout: 15 * time.Minute,
		},
		Storage: StorageConfig{
			Root:      filepath.Join(os.TempDir(), "searchpdf"),
			Retention: time.Hour,
		},
		OCR: OCRConfig{
			Language:      "eng",
			Engine:        recognize.EngineTesseract,
			RenderFactor:  3.0,
			MinPageChars:  50,
			MinConfidence: 40,
			PageWorkers:   runtime.NumCPU(),
			Timeout:       DefaultOCRTimeout,
			LayerName:     "OCR Text",
		},
		OCRmyPDF: ocrmypdf.Config{
			Timeout:  ocrmypdf.DefaultTimeout,
			Variants: ocrmypdf.DefaultVariants(),
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty; envFile names a .env
// file that is loaded when present.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("HOST", &c.Server.Host)
	integer("PORT", &c.Server.Port)
	str("STATIC_DIR", &c.Server.StaticDir)
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err))
		} else {
			c.Server.MaxUploadBytes = n
		}
	}
	integer("WORKERS", &c.Server.Workers)
	dur("REQUEST_TIMEOUT", &c.Server.RequestTimeout)

	str("STORAGE_ROOT", &c.Storage.Root)
	dur("RETENTION", &c.Storage.Retention)

	str("OCR_LANGUAGE", &c.OCR.Language)
	str("OCR_ENGINE", &c.OCR.Engine)
	boolean("OCR_STRICT", &c.OCR.Strict)
	boolean("DISABLE_OCRMYPDF", &c.OCR.DisableOCRmyPDF)
	integer("PAGE_WORKERS", &c.OCR.PageWorkers)
	dur("OCR_TIMEOUT", &c.OCR.Timeout)

	str("OCRMYPDF_BINARY", &c.OCRmyPDF.Binary)
	dur("OCRMYPDF_TIMEOUT", &c.OCRmyPDF.Timeout)

	str("DOCAI_PROJECT_ID", &c.DocumentAI.ProjectID)
	str("DOCAI_LOCATION", &c.DocumentAI.Location)
	str("DOCAI_PROCESSOR_ID", &c.DocumentAI.ProcessorID)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.DocumentAI.CredentialsFile)

	str("LOG_LEVEL", &c.LogLevel)
	return errors.Join(errs...)
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be > 0"))
	}
	if c.Server.Workers <= 0 {
		errs = append(errs, errors.New("server.workers must be > 0"))
	}
	if c.Storage.Root == "" {
		errs = append(errs, errors.New("storage.root is required"))
	}
	if c.Storage.Retention <= 0 {
		errs = append(errs, errors.New("storage.retention must be > 0"))
	}
	if c.OCR.Language == "" {
		errs = append(errs, errors.New("ocr.language is required"))
	}
	switch c.OCR.Engine {
	case recognize.EngineTesseract, recognize.EngineGosseract:
	case recognize.EngineDocumentAI:
		if !c.DocumentAI.Enabled() {
			errs = append(errs, errors.New("ocr.engine documentai needs documentai.project_id, location and processor_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("ocr.engine %q is not one of tesseract, gosseract, documentai", c.OCR.Engine))
	}
	if c.OCR.RenderFactor <= 0 {
		errs = append(errs, errors.New("ocr.render_factor must be > 0"))
	}
	if c.OCR.Timeout <= 0 {
		errs = append(errs, errors.New("ocr.timeout must be > 0"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}
