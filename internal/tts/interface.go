// internal/tts/interface.go
package tts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

// 错误定义
var ErrUnknownEngine = errors.New("未知的TTS引擎")

// 音色参数的合法区间
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// SynthesisConfig 一次合成调用的完整配置
type SynthesisConfig struct {
	Engine     string  `json:"engine"`
	VoiceID    string  `json:"voice_id"`
	Speed      float64 `json:"speed"`
	Pitch      float64 `json:"pitch"`
	Volume     float64 `json:"volume"`
	Emotion    string  `json:"emotion,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Format     string  `json:"format,omitempty"`
}

// SynthesisResult 合成结果。
// 普通的合成失败（音色无效、后端不可达、文本不支持）不通过 error 表达，
// 而是 Success=false 加可读的失败原因，调用方据此决定重试或上报。
type SynthesisResult struct {
	Success      bool           `json:"success"`
	AudioPath    string         `json:"audio_path,omitempty"`
	Duration     int            `json:"duration,omitempty"` // 音频时长(秒)
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Provider 定义所有TTS后端必须实现的接口
type Provider interface {
	// 初始化后端，传入凭据等配置
	Initialize(credentials map[string]string) error

	// 获取后端名称
	Name() string

	// 合成语音到 outputPath，普通失败记录在结果里，不 panic 不返回 error
	Synthesize(ctx context.Context, text string, config SynthesisConfig, outputPath string) SynthesisResult

	// 获取可用的音色列表
	ListVoices(ctx context.Context) ([]models.VoiceInfo, error)

	// 测试后端连接是否正常，用于批量任务前的健康检查
	TestConnection(ctx context.Context) bool

	// 验证配置是否有效，必须在任何合成尝试之前调用
	ValidateConfig(config SynthesisConfig) bool
}

// ProviderFactory 后端工厂函数类型
type ProviderFactory func() Provider

// Registry 后端注册表。
// 启动注册完成后只增不删，请求处理期间只读，因此不加锁。
type Registry struct {
	factories map[string]ProviderFactory
}

// NewRegistry 创建一个空的注册表
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
	}
}

// 全局注册表，后端包在 init 中向它注册
var DefaultRegistry = NewRegistry()

// Register 注册一个新的TTS后端
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.factories[strings.ToLower(name)] = factory
}

// Create 创建指定名称的后端实例。
// 引擎未注册时返回 ErrUnknownEngine，并在错误信息中列出当前可用引擎。
func (r *Registry) Create(name string, credentials map[string]string) (Provider, error) {
	factory, exists := r.factories[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("%w: %s (可用引擎: %s)",
			ErrUnknownEngine, name, strings.Join(r.Available(), ", "))
	}

	provider := factory()
	if err := provider.Initialize(credentials); err != nil {
		return nil, err
	}

	return provider, nil
}

// Available 返回所有已注册的引擎名称，按字典序
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Register 向全局注册表注册后端工厂
func Register(name string, factory ProviderFactory) {
	DefaultRegistry.Register(name, factory)
}

// Create 从全局注册表创建后端实例
func Create(name string, credentials map[string]string) (Provider, error) {
	return DefaultRegistry.Create(name, credentials)
}

// AvailableEngines 返回全局注册表中所有引擎名称
func AvailableEngines() []string {
	return DefaultRegistry.Available()
}

// ValidateBounds 共用的配置校验：音色ID非空，速度/音调/音量在 [0.5, 2.0] 内。
// 各后端的 ValidateConfig 在此之上再做引擎相关的检查。
func ValidateBounds(config SynthesisConfig) bool {
	if config.VoiceID == "" {
		return false
	}

	for _, v := range []float64{config.Speed, config.Pitch, config.Volume} {
		if v < MinRate || v > MaxRate {
			return false
		}
	}

	return true
}
