package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     Server     `yaml:"server"`
	Store      Store      `yaml:"store"`
	Auth       Auth       `yaml:"auth"`
	Generation Generation `yaml:"generation"`
	Narration  Narration  `yaml:"narration"`
	Storage    Storage    `yaml:"storage"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	LogLevel      string `yaml:"logLevel"`
}

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

type Store struct {
	Driver      string `yaml:"driver"` // memory, postgres, firestore
	PostgresDsn string `yaml:"postgresDsn"`
	ProjectID   string `yaml:"projectId"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
	Audience  string `yaml:"audience"`
}

// LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Generation struct {
	Provider     string  `yaml:"provider"` // groq, gemini
	Model        string  `yaml:"model"`
	Endpoint     string  `yaml:"endpoint"`
	GroqAPIKey   string  `yaml:"groqApiKey"`
	GeminiAPIKey string  `yaml:"geminiApiKey"`
	RateLimit    float64 `yaml:"rateLimit"` // requests per second per client
	Burst        int     `yaml:"burst"`
}

type Narration struct {
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"`
	CacheTTL string `yaml:"cacheTTL"`
}

// TTL parses CacheTTL. An empty or invalid value yields zero, which callers
// replace with their default.
func (n Narration) TTL() time.Duration {
	d, err := time.ParseDuration(n.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

type Storage struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"pathStyle"`
	PublicBaseURL   string `yaml:"publicBaseURL"`
	PublicRead      bool   `yaml:"publicRead"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

// Load reads the YAML config at path, then overlays secrets from the
// environment and an optional .env file.
func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	config.applyEnv()
	config.applyDefaults()

	return config, config.Validate()
}

var envOverrides = []struct {
	name   string
	target func(*Config) *string
}{
	{"GROQ_API_KEY", func(c *Config) *string { return &c.Generation.GroqAPIKey }},
	{"GEMINI_API_KEY", func(c *Config) *string { return &c.Generation.GeminiAPIKey }},
	{"GOOGLE_TTS_API_KEY", func(c *Config) *string { return &c.Narration.APIKey }},
	{"STORYNEST_JWT_SECRET", func(c *Config) *string { return &c.Auth.JWTSecret }},
	{"STORYNEST_POSTGRES_DSN", func(c *Config) *string { return &c.Store.PostgresDsn }},
	{"STORYNEST_REDIS_ADDR", func(c *Config) *string { return &c.Server.RedisAddr }},
	{"AWS_ACCESS_KEY_ID", func(c *Config) *string { return &c.Storage.AccessKeyID }},
	{"AWS_SECRET_ACCESS_KEY", func(c *Config) *string { return &c.Storage.SecretAccessKey }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.target(c) = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderGroq
	}
	if c.Generation.RateLimit == 0 {
		c.Generation.RateLimit = 0.5
	}
	if c.Generation.Burst == 0 {
		c.Generation.Burst = 5
	}
	if c.Auth.Audience == "" {
		c.Auth.Audience = "storynest-api"
	}
}

// Validate checks the combinations the server cannot start without.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.PostgresDsn == "" {
			return fmt.Errorf("store.postgresDsn is required for the postgres driver")
		}
	case DriverFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store.projectId is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Generation.Provider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret (or STORYNEST_JWT_SECRET) is required")
	}
	return nil
}
