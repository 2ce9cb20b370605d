package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Conversation  ConversationConfig      `mapstructure:"conversation"`
	Retrieval     RetrievalConfig         `mapstructure:"retrieval"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address            string   `mapstructure:"address"`
	MetricsAddress     string   `mapstructure:"metrics_address"`
	RequestTimeout     int      `mapstructure:"request_timeout"` // milliseconds
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	LeadProcessID  string `mapstructure:"lead_process_id"`
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver        string              `mapstructure:"driver"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

const (
	KeywordMatchingSubstring = "substring"
	KeywordMatchingWord      = "word"
)

type ConversationConfig struct {
	HistoryLimit    int    `mapstructure:"history_limit"`
	KeywordMatching string `mapstructure:"keyword_matching"`
	ExecutiveFilter bool   `mapstructure:"executive_filter"`
	CacheEnabled    bool   `mapstructure:"cache_enabled"`
	SessionCacheTTL int    `mapstructure:"session_cache_ttl"` // milliseconds
	RecordTimeout   int    `mapstructure:"record_timeout"`    // milliseconds
}

const (
	RetrievalBackendPgvector      = "pgvector"
	RetrievalBackendElasticsearch = "elasticsearch"
	RetrievalBackendNone          = "none"
)

type RetrievalConfig struct {
	Backend                  string  `mapstructure:"backend"`
	Index                    string  `mapstructure:"index"`
	MatchCount               int     `mapstructure:"match_count"`
	SimilarityThreshold      float64 `mapstructure:"similarity_threshold"`
	MinContentLength         int     `mapstructure:"min_content_length"`
	FallbackThreshold        float64 `mapstructure:"fallback_threshold"`
	FallbackMinContentLength int     `mapstructure:"fallback_min_content_length"`
	Timeout                  int     `mapstructure:"timeout"` // milliseconds
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type IntegrationConfig struct {
	Zoho struct {
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
		BaseURL   string `mapstructure:"base_url"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type APIsConfig struct {
	OpenAI struct {
		BaseURL             string  `mapstructure:"base_url"`
		APIKey              string  `mapstructure:"api_key"`
		ChatModel           string  `mapstructure:"chat_model"`
		EmbeddingModel      string  `mapstructure:"embedding_model"`
		EmbeddingDimensions int     `mapstructure:"embedding_dimensions"`
		MaxTokens           int     `mapstructure:"max_tokens"`
		Temperature         float32 `mapstructure:"temperature"`
		MaxRetries          int     `mapstructure:"max_retries"`
		Timeout             int     `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"openai"`
}

type NotificationConfig struct {
	SalesEmail          string `mapstructure:"sales_email"`
	SalesPhone          string `mapstructure:"sales_phone"`
	SMSForBudgetHolders bool   `mapstructure:"sms_for_budget_holders"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
