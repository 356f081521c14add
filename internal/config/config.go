// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Naver    NaverConfig    `mapstructure:"naver"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port             string   `mapstructure:"port"`
	Mode             string   `mapstructure:"mode"`
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	// Driver 取值 postgres 或 sqlite
	Driver string      `mapstructure:"driver"`
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。未启用时风险告警直接写库。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于导出咨询报告。
type MinIOConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Endpoint           string `mapstructure:"endpoint"`
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	UseSSL             bool   `mapstructure:"use_ssl"`
	BucketName         string `mapstructure:"bucket_name"`
	PresignExpiryHours int    `mapstructure:"presign_expiry_hours"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	HistoryLimit   int                 `mapstructure:"history_limit"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature      float64 `mapstructure:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	PresencePenalty  float64 `mapstructure:"presence_penalty"`
	FrequencyPenalty float64 `mapstructure:"frequency_penalty"`
}

// NaverConfig 存储 Naver 地图 API 的配置。
type NaverConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
}

// ChatConfig 存储会话状态相关的配置。
type ChatConfig struct {
	BusyTTLSeconds  int `mapstructure:"busy_ttl_seconds"`
	TestRunTTLHours int `mapstructure:"test_run_ttl_hours"`
}

// AuthConfig 存储密码编码方式，legacy 或 bcrypt。
type AuthConfig struct {
	PasswordScheme string `mapstructure:"password_scheme"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "risk-alerts")
	v.SetDefault("kafka.group_id", "yourmind-go-consumer")
	v.SetDefault("minio.bucket_name", "counsel-reports")
	v.SetDefault("minio.presign_expiry_hours", 24)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.history_limit", 20)
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.max_tokens", 1000)
	v.SetDefault("llm.generation.presence_penalty", 0.1)
	v.SetDefault("llm.generation.frequency_penalty", 0.1)
	v.SetDefault("naver.base_url", "https://naveropenapi.apigw.ntruss.com")
	v.SetDefault("chat.busy_ttl_seconds", 60)
	v.SetDefault("chat.test_run_ttl_hours", 24)
	v.SetDefault("auth.password_scheme", "legacy")
}

// Load 读取 .env（若存在）与 YAML 配置文件，环境变量优先，例如 LLM_API_KEY 覆盖 llm.api_key。
func Load(configPath string) (Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
