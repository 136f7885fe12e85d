// Package config holds OPERATOR-LEVEL configuration for a Flusso installation.
//
// This is infrastructure config set by whoever deploys the triage engine:
// upstream endpoints, thresholds, timeouts, storage paths. Set via env vars
// (FLUSSO_*) or a flusso.config.yaml read by viper.
//
// Tunables that the resolution pipeline consults at runtime (confidence
// floor, evidence thresholds, iteration cap) live here too so operators can
// adjust them without a rebuild.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/cryptoutil"
)

// Viper keys. Each maps to an env var with the FLUSSO_ prefix
// (e.g. "redis_addr" → FLUSSO_REDIS_ADDR) and to a YAML field in
// flusso.config.yaml.
const (
	KeyDataDir    = "data_dir"
	KeySigningKey = "signing_key"

	KeyListenAddr = "listen_addr"

	KeyFreshdeskDomain  = "freshdesk_domain"
	KeyFreshdeskAPIKey  = "freshdesk_api_key"
	KeyFreshdeskBaseURL = "freshdesk_base_url"

	KeyOracleProvider       = "oracle_provider"
	KeyOracleClassifyModel  = "oracle_classify_model"
	KeyOracleAgentModel     = "oracle_agent_model"
	KeyOpenAIAPIKey         = "openai_api_key"
	KeyOpenAIBaseURL        = "openai_base_url"
	KeyAnthropicAPIKey      = "anthropic_api_key"
	KeyOllamaBaseURL        = "ollama_base_url"

	KeyVectorBaseURL   = "vector_base_url"
	KeyVectorAPIKey    = "vector_api_key"
	KeyEmbedderBaseURL = "embedder_base_url"

	KeyRedisAddr     = "redis_addr"
	KeyRedisPassword = "redis_password"
	KeyRedisDB       = "redis_db"

	KeyMaxIterations     = "max_iterations"
	KeyTicketTimeoutMin  = "ticket_timeout_minutes"
	KeyDedupTTLMin       = "dedup_ttl_minutes"
	KeyAuditRingCapacity = "audit_ring_capacity"

	KeyConfidenceFloor     = "confidence_floor"
	KeyVisionHighThreshold = "vision_high_threshold"
	KeyVisionMedThreshold  = "vision_medium_threshold"
	KeyOCRThreshold        = "ocr_threshold"
	KeyTicketFactsThreshold = "ticket_facts_threshold"
	KeyAgentTrustThreshold  = "agent_trust_threshold"

	KeyCategoryTablesPath = "category_tables_path"
	KeyResweepSpec        = "resweep_cron"
	KeyResweepMaxAgeHours = "resweep_max_age_hours"

	KeyOTelEnabled = "otel_enabled"
)

// Defaults. The signing key intentionally has no baked-in default — when
// unset we generate a deterministic per-machine fallback and warn loudly.
const (
	DefaultListenAddr        = ":8080"
	DefaultOracleProvider    = "openai"
	DefaultClassifyModel     = "gpt-4o-mini"
	DefaultAgentModel        = "gpt-4o"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultRedisAddr         = "localhost:6379"
	DefaultMaxIterations     = 15
	DefaultTicketTimeoutMin  = 25
	DefaultDedupTTLMin       = 60
	DefaultAuditRingCapacity = 512
	DefaultConfidenceFloor   = 0.4
	DefaultVisionHigh        = 0.90
	DefaultVisionMedium      = 0.75
	DefaultOCRThreshold      = 0.80
	DefaultTicketFacts       = 0.75
	DefaultAgentTrust        = 0.70
	DefaultResweepSpec       = "0 */2 * * *"
	DefaultResweepMaxAgeH    = 24
)

// Thresholds groups the evidence and decision tunables so the resolver and
// decision engine take one value instead of the whole Config.
type Thresholds struct {
	ConfidenceFloor float64
	VisionHigh      float64
	VisionMedium    float64
	OCR             float64
	TicketFacts     float64
	AgentTrust      float64
}

// Config holds resolved operator-level configuration for a Flusso process.
type Config struct {
	DataDir    string // Base directory for all state (~/.flusso)
	SigningKey string // HMAC-SHA256 key for audit record signing (≥32 bytes)

	ListenAddr string

	FreshdeskDomain  string // e.g. "acme" for acme.freshdesk.com
	FreshdeskAPIKey  string
	FreshdeskBaseURL string // overrides the domain-derived URL; for mocks and proxies

	OracleProvider      string // openai | anthropic | ollama
	OracleClassifyModel string
	OracleAgentModel    string
	OpenAIAPIKey        string
	OpenAIBaseURL       string // overrides api.openai.com; for mocks and gateways
	AnthropicAPIKey     string
	OllamaBaseURL       string

	VectorBaseURL   string
	VectorAPIKey    string
	EmbedderBaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxIterations     int
	TicketTimeout     time.Duration
	DedupTTL          time.Duration
	AuditRingCapacity int

	Thresholds Thresholds

	CategoryTablesPath string // optional YAML overriding the embedded category tables
	ResweepSpec        string // cron spec for the awaiting-reply resweep
	ResweepMaxAge      time.Duration

	OTelEnabled bool

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the audit signing key was derived
// (not set explicitly). Commands should warn when this is the case.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// AuditDBPath returns the full path to the audit SQLite database.
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKeys logs a warning when the signing key is not explicitly set.
func (c *Config) WarnIfDefaultKeys() {
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default FLUSSO_SIGNING_KEY — set via env var or config file for production")
	}
}

func init() {
	viper.SetEnvPrefix("FLUSSO")
	viper.AutomaticEnv()
	viper.SetDefault(KeyListenAddr, DefaultListenAddr)
	viper.SetDefault(KeyOracleProvider, DefaultOracleProvider)
	viper.SetDefault(KeyOracleClassifyModel, DefaultClassifyModel)
	viper.SetDefault(KeyOracleAgentModel, DefaultAgentModel)
	viper.SetDefault(KeyOllamaBaseURL, DefaultOllamaURL)
	viper.SetDefault(KeyRedisAddr, DefaultRedisAddr)
	viper.SetDefault(KeyMaxIterations, DefaultMaxIterations)
	viper.SetDefault(KeyTicketTimeoutMin, DefaultTicketTimeoutMin)
	viper.SetDefault(KeyDedupTTLMin, DefaultDedupTTLMin)
	viper.SetDefault(KeyAuditRingCapacity, DefaultAuditRingCapacity)
	viper.SetDefault(KeyConfidenceFloor, DefaultConfidenceFloor)
	viper.SetDefault(KeyVisionHighThreshold, DefaultVisionHigh)
	viper.SetDefault(KeyVisionMedThreshold, DefaultVisionMedium)
	viper.SetDefault(KeyOCRThreshold, DefaultOCRThreshold)
	viper.SetDefault(KeyTicketFactsThreshold, DefaultTicketFacts)
	viper.SetDefault(KeyAgentTrustThreshold, DefaultAgentTrust)
	viper.SetDefault(KeyResweepSpec, DefaultResweepSpec)
	viper.SetDefault(KeyResweepMaxAgeHours, DefaultResweepMaxAgeH)
}

// Load reads configuration from Viper (which merges env vars, config file,
// and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:    resolveDataDir(),
		SigningKey: viper.GetString(KeySigningKey),

		ListenAddr: viper.GetString(KeyListenAddr),

		FreshdeskDomain:  viper.GetString(KeyFreshdeskDomain),
		FreshdeskAPIKey:  viper.GetString(KeyFreshdeskAPIKey),
		FreshdeskBaseURL: viper.GetString(KeyFreshdeskBaseURL),

		OracleProvider:      viper.GetString(KeyOracleProvider),
		OracleClassifyModel: viper.GetString(KeyOracleClassifyModel),
		OracleAgentModel:    viper.GetString(KeyOracleAgentModel),
		OpenAIAPIKey:        viper.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL:       viper.GetString(KeyOpenAIBaseURL),
		AnthropicAPIKey:     viper.GetString(KeyAnthropicAPIKey),
		OllamaBaseURL:       viper.GetString(KeyOllamaBaseURL),

		VectorBaseURL:   viper.GetString(KeyVectorBaseURL),
		VectorAPIKey:    viper.GetString(KeyVectorAPIKey),
		EmbedderBaseURL: viper.GetString(KeyEmbedderBaseURL),

		RedisAddr:     viper.GetString(KeyRedisAddr),
		RedisPassword: viper.GetString(KeyRedisPassword),
		RedisDB:       viper.GetInt(KeyRedisDB),

		MaxIterations:     viper.GetInt(KeyMaxIterations),
		TicketTimeout:     time.Duration(viper.GetInt(KeyTicketTimeoutMin)) * time.Minute,
		DedupTTL:          time.Duration(viper.GetInt(KeyDedupTTLMin)) * time.Minute,
		AuditRingCapacity: viper.GetInt(KeyAuditRingCapacity),

		Thresholds: Thresholds{
			ConfidenceFloor: viper.GetFloat64(KeyConfidenceFloor),
			VisionHigh:      viper.GetFloat64(KeyVisionHighThreshold),
			VisionMedium:    viper.GetFloat64(KeyVisionMedThreshold),
			OCR:             viper.GetFloat64(KeyOCRThreshold),
			TicketFacts:     viper.GetFloat64(KeyTicketFactsThreshold),
			AgentTrust:      viper.GetFloat64(KeyAgentTrustThreshold),
		},

		CategoryTablesPath: viper.GetString(KeyCategoryTablesPath),
		ResweepSpec:        viper.GetString(KeyResweepSpec),
		ResweepMaxAge:      time.Duration(viper.GetInt(KeyResweepMaxAgeHours)) * time.Hour,

		OTelEnabled: viper.GetBool(KeyOTelEnabled),
	}

	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "audit-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flusso"
	}
	return filepath.Join(home, ".flusso")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Not cryptographically strong — it exists
// solely so `flusso serve` works out of the box while still signing audit
// records with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("flusso:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	switch c.OracleProvider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("oracle_provider must be openai, anthropic or ollama (got %q)", c.OracleProvider)
	}
	if c.MaxIterations < 2 {
		return fmt.Errorf("max_iterations must be at least 2 (got %d)", c.MaxIterations)
	}
	if c.TicketTimeout <= 0 {
		return fmt.Errorf("ticket_timeout_minutes must be positive")
	}
	if c.DedupTTL <= 0 {
		return fmt.Errorf("dedup_ttl_minutes must be positive")
	}
	if c.AuditRingCapacity <= 0 {
		return fmt.Errorf("audit_ring_capacity must be positive")
	}
	t := c.Thresholds
	for name, v := range map[string]float64{
		KeyConfidenceFloor:      t.ConfidenceFloor,
		KeyVisionHighThreshold:  t.VisionHigh,
		KeyVisionMedThreshold:   t.VisionMedium,
		KeyOCRThreshold:         t.OCR,
		KeyTicketFactsThreshold: t.TicketFacts,
		KeyAgentTrustThreshold:  t.AgentTrust,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1] (got %v)", name, v)
		}
	}
	if t.VisionMedium > t.VisionHigh {
		return fmt.Errorf("vision_medium_threshold must not exceed vision_high_threshold")
	}
	return nil
}

// validateSigningKey accepts either ≥32 raw bytes or 64+ hex characters
// (decoded length ≥32 for HMAC-SHA256). Hex is checked first so that hex
// format is validated; raw is accepted otherwise when n ≥ 32.
func validateSigningKey(key string) error {
	n := len(key)
	if n >= 64 && n%2 == 0 && cryptoutil.IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil || len(decoded) < 32 {
			return fmt.Errorf("signing_key hex must decode to at least 32 bytes: %w", err)
		}
		return nil
	}
	if n >= 32 {
		return nil
	}
	return fmt.Errorf("signing_key must be at least 32 bytes or 64+ hex characters (got %d); set FLUSSO_SIGNING_KEY", n)
}
