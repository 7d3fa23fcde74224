package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	CORSOrigins []string         `json:"cors_origins"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Upload      UploadConfig     `json:"upload"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Index       IndexConfig      `json:"index"`
	Chunking    ChunkingConfig   `json:"chunking"`
	AI          AIConfig         `json:"ai"`
	Schedule    ScheduleConfig   `json:"schedule"`
}

type UploadConfig struct {
	Dir            string `json:"dir"`
	MaxSize        int64  `json:"max_size"`
	RetentionHours int    `json:"retention_hours"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type IndexConfig struct {
	Dir        string `json:"dir"`
	Collection string `json:"collection"`
	EmbedDim   int    `json:"embed_dim"`
	Timeout    int    `json:"timeout"`
}

type ChunkingConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	EmbedProvider string      `json:"embed_provider"`
	EmbedModel    string      `json:"embed_model"`
	Timeout       int         `json:"timeout"`
	CacheSize     int         `json:"cache_size"`
	CacheTTLMins  int         `json:"cache_ttl_minutes"`
	Data          interface{} `json:"data"`
}

type ScheduleConfig struct {
	UploadCleanup string `json:"upload_cleanup"`
	Reembed       string `json:"reembed"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "./uploads"
	}
	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = 10 * 1024 * 1024
	}
	if cfg.Upload.RetentionHours == 0 {
		cfg.Upload.RetentionHours = 72
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": cfg.Upload.Dir}
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "./data/index"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "documents"
	}
	if cfg.Index.EmbedDim == 0 {
		cfg.Index.EmbedDim = 384
	}
	if cfg.Index.Timeout == 0 {
		cfg.Index.Timeout = 30
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Data == nil {
		return nil, fmt.Errorf("ai.data is required")
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "meta-llama/llama-3.1-8b-instruct:free"
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-ada-002"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 10000
	}
	if cfg.AI.CacheTTLMins == 0 {
		cfg.AI.CacheTTLMins = 120
	}
	return &cfg, nil
}
