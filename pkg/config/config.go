package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Milvus    MilvusConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Search    SearchConfig
	Gap       GapConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type EmbeddingConfig struct {
	Provider      string
	APIKey        string
	Model         string
	CanonicalDim  int
	MaxInputChars int
	TimeoutSec    int
	CacheTTLMin   int
}

type LLMConfig struct {
	Provider          string
	APIKey            string
	Model             string
	Temperature       float32
	MaxTokens         int
	AnswerTimeoutSec  int
	ClusterTimeoutSec int
}

type SearchConfig struct {
	MinSimilarity   float64
	ResultLimit     int
	AuditTier       string
	HybridRerank    bool
	VectorWeight    float64
	LexicalWeight   float64
	CacheTTLMin     int
	FallbackMessage string
}

type GapConfig struct {
	CooldownDays        int
	MinPendingQuestions int
	MinUniqueUsers      int
	PageSize            int
	MaxPages            int
	PageDelaySec        int
	SampleLimit         int
	ScheduleIntervalMin int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/faq-agent")

	viper.SetEnvPrefix("FAQ_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.development", false)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "faq_vectors")

	viper.SetDefault("sqlite.path", "./data/faqagent.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.canonicalDim", 1536)
	viper.SetDefault("embedding.maxInputChars", 8000)
	viper.SetDefault("embedding.timeoutSec", 15)
	viper.SetDefault("embedding.cacheTTLMin", 1440)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.answerTimeoutSec", 30)
	viper.SetDefault("llm.clusterTimeoutSec", 120)

	viper.SetDefault("search.minSimilarity", 0.40)
	viper.SetDefault("search.resultLimit", 5)
	viper.SetDefault("search.auditTier", "medium")
	viper.SetDefault("search.hybridRerank", false)
	viper.SetDefault("search.vectorWeight", 0.8)
	viper.SetDefault("search.lexicalWeight", 0.2)
	viper.SetDefault("search.cacheTTLMin", 60)
	viper.SetDefault("search.fallbackMessage", "I could not find an answer to that. Could you rephrase the question?")

	viper.SetDefault("gap.cooldownDays", 7)
	viper.SetDefault("gap.minPendingQuestions", 30)
	viper.SetDefault("gap.minUniqueUsers", 3)
	viper.SetDefault("gap.pageSize", 50)
	viper.SetDefault("gap.maxPages", 10)
	viper.SetDefault("gap.pageDelaySec", 2)
	viper.SetDefault("gap.sampleLimit", 5)
	viper.SetDefault("gap.scheduleIntervalMin", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
