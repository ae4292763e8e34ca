// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// 合成相关的默认值
const (
	DefaultTTSEngine       = "mock"
	DefaultNarratorVoiceID = "mock_narrator"
	DefaultMaxConcurrency  = 4
	DefaultSilenceGapMs    = 500
)

// Config 存储从环境变量加载的基础配置
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool
}

// AppConfig 包含应用程序的所有配置，持久化到 data/config.json
type AppConfig struct {
	// 基础配置
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// TTS相关配置
	TTSEngine       string            `json:"tts_engine"`        // 默认引擎
	TTSCredentials  map[string]string `json:"tts_credentials"`   // 引擎凭据
	NarratorEngine  string            `json:"narrator_engine"`   // 旁白默认引擎
	NarratorVoiceID string            `json:"narrator_voice_id"` // 旁白默认音色
	MaxConcurrency  int               `json:"max_concurrency"`   // 批量合成并发上限
	SilenceGapMs    int               `json:"silence_gap_ms"`    // 片段间静音(毫秒)
}

// Load 从环境变量加载基础配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		LogDir:    getEnvPath("LOG_DIR", "logs"),
		DebugMode: getEnvBool("DEBUG_MODE", true),
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

// getEnvPath 获取环境变量表示的路径，确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:            baseConfig.Port,
		DataDir:         baseConfig.DataDir,
		LogDir:          baseConfig.LogDir,
		DebugMode:       baseConfig.DebugMode,
		TTSEngine:       getEnv("TTS_ENGINE", DefaultTTSEngine),
		TTSCredentials:  map[string]string{},
		NarratorEngine:  getEnv("NARRATOR_ENGINE", DefaultTTSEngine),
		NarratorVoiceID: getEnv("NARRATOR_VOICE_ID", DefaultNarratorVoiceID),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", DefaultMaxConcurrency),
		SilenceGapMs:    getEnvInt("SILENCE_GAP_MS", DefaultSilenceGapMs),
	}

	// 尝试从文件加载已保存的配置，保留其中的TTS设置
	if data, err := os.ReadFile(configFile); err == nil {
		var savedConfig AppConfig
		if json.Unmarshal(data, &savedConfig) == nil {
			savedConfig.Port = baseConfig.Port
			savedConfig.DataDir = baseConfig.DataDir
			savedConfig.LogDir = baseConfig.LogDir
			savedConfig.DebugMode = baseConfig.DebugMode

			if savedConfig.MaxConcurrency <= 0 {
				savedConfig.MaxConcurrency = DefaultMaxConcurrency
			}

			if savedConfig.SilenceGapMs < 0 {
				savedConfig.SilenceGapMs = DefaultSilenceGapMs
			}

			currentConfig = &savedConfig
		}
	}

	return saveConfigLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()

		return &AppConfig{
			Port:            baseConfig.Port,
			DataDir:         baseConfig.DataDir,
			LogDir:          baseConfig.LogDir,
			DebugMode:       baseConfig.DebugMode,
			TTSEngine:       DefaultTTSEngine,
			NarratorEngine:  DefaultTTSEngine,
			NarratorVoiceID: DefaultNarratorVoiceID,
			MaxConcurrency:  DefaultMaxConcurrency,
			SilenceGapMs:    DefaultSilenceGapMs,
		}
	}

	configCopy := *currentConfig

	return &configCopy
}

// UpdateTTSConfig 更新默认TTS引擎和凭据
func UpdateTTSConfig(engine string, credentials map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.TTSEngine = engine
	currentConfig.TTSCredentials = credentials

	return saveConfigLocked()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()

	return saveConfigLocked()
}

func saveConfigLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
