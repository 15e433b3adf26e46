package config

import (
	"encoding/json"
	"log"
	"os"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	Auth     AuthConfig     `json:"auth"`
	LLM      LLMConfig      `json:"llm"`
	Memory   MemoryConfig   `json:"memory"`
	Upload   UploadConfig   `json:"upload"`
	Limit    LimitConfig    `json:"limit"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type KafkaConfig struct {
	Brokers   []string `json:"brokers"`
	JobsTopic string   `json:"jobs_topic"`
	GroupID   string   `json:"group_id"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Mechanism string   `json:"mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	UseTLS    bool     `json:"use_tls"`
	CertFile  string   `json:"cert_file"`
	KeyFile   string   `json:"key_file"`
	CAFile    string   `json:"ca_file"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenExpiry   int    `json:"token_expiry"`   // in hours
	RefreshExpiry int    `json:"refresh_expiry"` // in hours
}

type LLMConfig struct {
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type MemoryConfig struct {
	ShortTermTTLSeconds int `json:"short_term_ttl_seconds"` // default 1800
	MaxHistory          int `json:"max_history"`            // short-term window cap, default 50
}

type UploadConfig struct {
	Dir         string `json:"dir"`
	MaxFileSize int64  `json:"max_file_size"`
}

type LimitConfig struct {
	MessagesPerMinute int `json:"messages_per_minute"`
}

func LoadConfig() (config Config, err error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.json"
	}
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer func(file *os.File) {
		closeErr := file.Close()
		if closeErr != nil {
			log.Printf("Error closing config file: %v", closeErr)
		}
	}(file)
	decoder := json.NewDecoder(file)
	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}
	applyDefaults(&config)
	return config, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Memory.ShortTermTTLSeconds == 0 {
		c.Memory.ShortTermTTLSeconds = 1800
	}
	if c.Memory.MaxHistory == 0 {
		c.Memory.MaxHistory = 50
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "./uploads"
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 10 * 1024 * 1024
	}
	if c.Limit.MessagesPerMinute == 0 {
		c.Limit.MessagesPerMinute = 30
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 30
	}
	if c.Kafka.JobsTopic == "" {
		c.Kafka.JobsTopic = "notification-jobs"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "notification-workers"
	}
}
