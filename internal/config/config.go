package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Job       JobConfig
	Extract   ExtractConfig
	Interpret InterpretConfig
	Artifact  ArtifactConfig
	Storage   StorageConfig
	Taxonomy  TaxonomyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JobConfig holds per-job limits.
type JobConfig struct {
	Budget        time.Duration `mapstructure:"budget"`
	MaxFileSizeMB int64         `mapstructure:"max_file_size_mb"`
	WorkDir       string        `mapstructure:"work_dir"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (j *JobConfig) MaxFileSizeBytes() int64 {
	return j.MaxFileSizeMB * 1024 * 1024
}

// VisionConfig holds Google Cloud Vision settings.
type VisionConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

// DocumentAIConfig holds Google Document AI settings.
type DocumentAIConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	ProcessorID     string `mapstructure:"processor_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// TesseractConfig holds paths and options for the local poppler/tesseract backend.
type TesseractConfig struct {
	TesseractPath string `mapstructure:"tesseract_path"`
	PdftotextPath string `mapstructure:"pdftotext_path"`
	PdftoppmPath  string `mapstructure:"pdftoppm_path"`
	Language      string `mapstructure:"language"`
	DPI           int    `mapstructure:"dpi"`
}

// ExtractConfig holds Content Extractor settings.
type ExtractConfig struct {
	Backend             string  `mapstructure:"backend"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	LowConfidencePolicy string  `mapstructure:"low_confidence_policy"`
	MaxPages            int     `mapstructure:"max_pages"`
	Concurrency         int     `mapstructure:"concurrency"`
	Vision              VisionConfig
	DocumentAI          DocumentAIConfig
	Tesseract           TesseractConfig
}

// ProviderConfig holds settings for a single language-model provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	Endpoint     string `mapstructure:"endpoint"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
	ProjectID    string `mapstructure:"project_id"`
	Location     string `mapstructure:"location"`
}

// InterpretConfig holds Interpretation Engine settings with multi-provider support.
type InterpretConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`

	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	MaxRepairAttempts int           `mapstructure:"max_repair_attempts"`
	ChunkPages        int           `mapstructure:"chunk_pages"`
	ChunkMaxChars     int           `mapstructure:"chunk_max_chars"`
	Concurrency       int           `mapstructure:"concurrency"`
	ChunkConcurrency  int           `mapstructure:"chunk_concurrency"`
}

// Providers returns the configured providers in fallback order.
func (c *InterpretConfig) Providers() []*ProviderConfig {
	var out []*ProviderConfig
	for _, p := range []*ProviderConfig{&c.Primary, &c.Secondary, &c.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// ArtifactConfig holds Artifact Builder settings.
type ArtifactConfig struct {
	WorkbookEnabled bool   `mapstructure:"workbook_enabled"`
	Creator         string `mapstructure:"creator"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// StorageConfig selects and configures the artifact store.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
	LocalDir      string `mapstructure:"local_dir"`
	S3            S3Config
	GCS           GCSConfig
}

// TaxonomyConfig points at an optional taxonomy override file.
type TaxonomyConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from an optional avplan.yaml and environment
// variables with the AVPLAN_ prefix. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AVPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Bind environment variables explicitly for nested keys
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, "AVPLAN_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if file := os.Getenv("AVPLAN_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("avplan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if AVPLAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("AVPLAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		CORSOrigins:  v.GetStringSlice("server.cors_origins"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Job = JobConfig{
		Budget:        v.GetDuration("job.budget"),
		MaxFileSizeMB: v.GetInt64("job.max_file_size_mb"),
		WorkDir:       v.GetString("job.work_dir"),
	}
	cfg.Extract = ExtractConfig{
		Backend:             v.GetString("extract.backend"),
		ConfidenceThreshold: v.GetFloat64("extract.confidence_threshold"),
		LowConfidencePolicy: v.GetString("extract.low_confidence_policy"),
		MaxPages:            v.GetInt("extract.max_pages"),
		Concurrency:         v.GetInt("extract.concurrency"),
		Vision: VisionConfig{
			CredentialsFile: v.GetString("extract.vision.credentials_file"),
			CredentialsJSON: v.GetString("extract.vision.credentials_json"),
		},
		DocumentAI: DocumentAIConfig{
			ProjectID:       v.GetString("extract.documentai.project_id"),
			Location:        v.GetString("extract.documentai.location"),
			ProcessorID:     v.GetString("extract.documentai.processor_id"),
			CredentialsFile: v.GetString("extract.documentai.credentials_file"),
		},
		Tesseract: TesseractConfig{
			TesseractPath: v.GetString("extract.tesseract.tesseract_path"),
			PdftotextPath: v.GetString("extract.tesseract.pdftotext_path"),
			PdftoppmPath:  v.GetString("extract.tesseract.pdftoppm_path"),
			Language:      v.GetString("extract.tesseract.language"),
			DPI:           v.GetInt("extract.tesseract.dpi"),
		},
	}
	cfg.Interpret = InterpretConfig{
		Primary:           providerConfig(v, "interpret.primary"),
		Secondary:         providerConfig(v, "interpret.secondary"),
		Tertiary:          providerConfig(v, "interpret.tertiary"),
		CallTimeout:       v.GetDuration("interpret.call_timeout"),
		MaxRepairAttempts: v.GetInt("interpret.max_repair_attempts"),
		ChunkPages:        v.GetInt("interpret.chunk_pages"),
		ChunkMaxChars:     v.GetInt("interpret.chunk_max_chars"),
		Concurrency:       v.GetInt("interpret.concurrency"),
		ChunkConcurrency:  v.GetInt("interpret.chunk_concurrency"),
	}
	cfg.Artifact = ArtifactConfig{
		WorkbookEnabled: v.GetBool("artifact.workbook_enabled"),
		Creator:         v.GetString("artifact.creator"),
	}
	cfg.Storage = StorageConfig{
		Backend:       v.GetString("storage.backend"),
		Bucket:        v.GetString("storage.bucket"),
		Prefix:        v.GetString("storage.prefix"),
		PresignExpiry: v.GetInt64("storage.presign_expiry"),
		LocalDir:      v.GetString("storage.local_dir"),
		S3: S3Config{
			Region:    v.GetString("storage.s3.region"),
			Endpoint:  v.GetString("storage.s3.endpoint"),
			AccessKey: v.GetString("storage.s3.access_key"),
			SecretKey: v.GetString("storage.s3.secret_key"),
		},
		GCS: GCSConfig{
			CredentialsFile: v.GetString("storage.gcs.credentials_file"),
		},
	}
	cfg.Taxonomy = TaxonomyConfig{
		Path: v.GetString("taxonomy.path"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "6m")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Job defaults
	v.SetDefault("job.budget", "5m")
	v.SetDefault("job.max_file_size_mb", 50)
	v.SetDefault("job.work_dir", "")

	// Extract defaults
	v.SetDefault("extract.backend", "tesseract")
	v.SetDefault("extract.confidence_threshold", 0.6)
	v.SetDefault("extract.low_confidence_policy", "proceed")
	v.SetDefault("extract.max_pages", 200)
	v.SetDefault("extract.concurrency", 4)
	v.SetDefault("extract.vision.credentials_file", "")
	v.SetDefault("extract.vision.credentials_json", "")
	v.SetDefault("extract.documentai.project_id", "")
	v.SetDefault("extract.documentai.location", "us")
	v.SetDefault("extract.documentai.processor_id", "")
	v.SetDefault("extract.documentai.credentials_file", "")
	v.SetDefault("extract.tesseract.tesseract_path", "tesseract")
	v.SetDefault("extract.tesseract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.tesseract.pdftoppm_path", "pdftoppm")
	v.SetDefault("extract.tesseract.language", "eng")
	v.SetDefault("extract.tesseract.dpi", 300)

	// Interpret primary/secondary/tertiary defaults
	for _, slot := range []string{"primary", "secondary", "tertiary"} {
		prefix := "interpret." + slot
		v.SetDefault(prefix+".provider", "")
		v.SetDefault(prefix+".api_key", "")
		v.SetDefault(prefix+".default_model", "")
		v.SetDefault(prefix+".endpoint", "")
		v.SetDefault(prefix+".timeout_secs", 120)
		v.SetDefault(prefix+".project_id", "")
		v.SetDefault(prefix+".location", "us-central1")
	}
	v.SetDefault("interpret.primary.provider", "openai")
	v.SetDefault("interpret.call_timeout", "90s")
	v.SetDefault("interpret.max_repair_attempts", 2)
	v.SetDefault("interpret.chunk_pages", 4)
	v.SetDefault("interpret.chunk_max_chars", 24000)
	v.SetDefault("interpret.concurrency", 4)
	v.SetDefault("interpret.chunk_concurrency", 2)

	// Artifact defaults
	v.SetDefault("artifact.workbook_enabled", false)
	v.SetDefault("artifact.creator", "avplan")

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.bucket", "avplan-artifacts")
	v.SetDefault("storage.prefix", "jobs")
	v.SetDefault("storage.presign_expiry", 3600)
	v.SetDefault("storage.local_dir", "./artifacts")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.gcs.credentials_file", "")

	// Taxonomy defaults
	v.SetDefault("taxonomy.path", "")
}

func providerConfig(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		Endpoint:     v.GetString(prefix + ".endpoint"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
		ProjectID:    v.GetString(prefix + ".project_id"),
		Location:     v.GetString(prefix + ".location"),
	}
}
