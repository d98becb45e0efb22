package model

import "time"

// Config is the complete configuration for precedent
type Config struct {
	Archive     ArchiveConfig     `yaml:"archive" mapstructure:"archive"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	FactCheck   FactCheckConfig   `yaml:"factcheck" mapstructure:"factcheck"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Consensus   ConsensusConfig   `yaml:"consensus" mapstructure:"consensus"`
	Speaker     SpeakerConfig     `yaml:"speaker" mapstructure:"speaker"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Feed        FeedConfig        `yaml:"feed" mapstructure:"feed"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// ArchiveConfig locates the fact-check archive
type ArchiveConfig struct {
	DataDir          string       `yaml:"data_dir" mapstructure:"data_dir"`
	IndexFile        string       `yaml:"index_file" mapstructure:"index_file"`
	MetadataFile     string       `yaml:"metadata_file" mapstructure:"metadata_file"`
	Backend          string       `yaml:"backend" mapstructure:"backend"` // flat, milvus
	Milvus           MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
	PrimaryPublisher string       `yaml:"primary_publisher" mapstructure:"primary_publisher"`
	Label            string       `yaml:"label" mapstructure:"label"`
}

// MilvusConfig configures the Milvus vector index backend
type MilvusConfig struct {
	Address    string `yaml:"address" mapstructure:"address"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	Metric     string `yaml:"metric" mapstructure:"metric"` // ip, l2
}

// RetrievalConfig tunes archive search
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k" mapstructure:"top_k"`
	SimThreshold   float64 `yaml:"sim_threshold" mapstructure:"sim_threshold"`
	LexicalLimit   int     `yaml:"lexical_limit" mapstructure:"lexical_limit"`
	LexicalScore   float64 `yaml:"lexical_score" mapstructure:"lexical_score"`
	ExplanationMax int     `yaml:"explanation_max" mapstructure:"explanation_max"`
}

// EmbeddingConfig configures the embedding provider
type EmbeddingConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"`
	Model    string        `yaml:"model" mapstructure:"model"`
	APIKey   string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL  string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FactCheckConfig configures the external fact-check search API
type FactCheckConfig struct {
	Enabled            bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey             string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL            string        `yaml:"base_url" mapstructure:"base_url"`
	MaxResults         int           `yaml:"max_results" mapstructure:"max_results"`
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout"`
	LongQueryThreshold int           `yaml:"long_query_threshold" mapstructure:"long_query_threshold"`
	RequestsPerSecond  float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize          int           `yaml:"burst_size" mapstructure:"burst_size"`
	HTTPProxy          string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy         string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy            string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LLMConfig configures the optional claim/term extraction model
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConsensusConfig tunes the consensus analyzer
type ConsensusConfig struct {
	OutlierDelta float64 `yaml:"outlier_delta" mapstructure:"outlier_delta"`
}

// SpeakerConfig tunes speaker detection
type SpeakerConfig struct {
	RosterSize         int `yaml:"roster_size" mapstructure:"roster_size"`
	Threshold          int `yaml:"threshold" mapstructure:"threshold"`
	ShortTextLen       int `yaml:"short_text_len" mapstructure:"short_text_len"`
	ShortTextThreshold int `yaml:"short_text_threshold" mapstructure:"short_text_threshold"`
}

// FetchConfig configures article fetching for the scan command
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	MaxClaims     int           `yaml:"max_claims" mapstructure:"max_claims"`
	HostRate      float64       `yaml:"host_rate" mapstructure:"host_rate"` // requests per second per host, 0 disables
	HostBurst     int           `yaml:"host_burst" mapstructure:"host_burst"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures memoization of embeddings and analyses
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis cache backend
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	BodyLimit         int           `yaml:"body_limit" mapstructure:"body_limit"`
	CheckTimeout      time.Duration `yaml:"check_timeout" mapstructure:"check_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // per client IP, 0 disables
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	Metrics           bool          `yaml:"metrics" mapstructure:"metrics"`
}

// FeedConfig configures RSS/Atom feed scanning
type FeedConfig struct {
	MaxItems    int    `yaml:"max_items" mapstructure:"max_items"`
	FollowLinks bool   `yaml:"follow_links" mapstructure:"follow_links"` // fetch each item's article instead of its summary
	Schedule    string `yaml:"schedule" mapstructure:"schedule"`         // cron spec, "" runs once
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			DataDir:      "./data",
			IndexFile:    "factcheck_index.bin",
			MetadataFile: "factcheck_metadata.json",
			Backend:      "flat",
			Milvus: MilvusConfig{
				Address:    "localhost:19530",
				Collection: "factchecks",
				Metric:     "ip",
			},
			PrimaryPublisher: "PolitiFact",
			Label:            "PolitiFact",
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			SimThreshold:   0.60,
			LexicalLimit:   10,
			LexicalScore:   0.99,
			ExplanationMax: 500,
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
			Timeout:  30 * time.Second,
		},
		FactCheck: FactCheckConfig{
			Enabled:            true,
			BaseURL:            "https://factchecktools.googleapis.com/v1alpha1/claims:search",
			MaxResults:         5,
			Timeout:            10 * time.Second,
			LongQueryThreshold: 200,
			RequestsPerSecond:  5,
			BurstSize:          5,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 600,
		},
		Consensus: ConsensusConfig{
			OutlierDelta: 1.5,
		},
		Speaker: SpeakerConfig{
			RosterSize:         50,
			Threshold:          80,
			ShortTextLen:       100,
			ShortTextThreshold: 85,
		},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Precedent/0.1 (+https://github.com/ppiankov/precedent)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
			MaxClaims:     5,
			HostRate:      1,
			HostBurst:     2,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			Dir:     "~/.precedent/cache",
			TTL:     24 * time.Hour,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      90 * time.Second,
			BodyLimit:         64 * 1024,
			CheckTimeout:      60 * time.Second,
			RequestsPerSecond: 2,
			BurstSize:         5,
			Metrics:           true,
		},
		Feed: FeedConfig{
			MaxItems: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ArchiveLabel returns the display label of the archive's primary publisher
func (c *Config) ArchiveLabel() string {
	if c.Archive.Label != "" {
		return c.Archive.Label
	}
	return c.Archive.PrimaryPublisher
}
