// internal/tts/providers/mock/mock.go
package mock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
)

func init() {
	tts.Register("mock", func() tts.Provider {
		return &Provider{
			charsPerSecond: defaultCharsPerSecond,
			sampleRate:     defaultSampleRate,
		}
	})
}

const (
	defaultCharsPerSecond = 3.5
	defaultSampleRate     = 16000
)

// Provider 是确定性的参考后端：不依赖外部服务，
// 按固定语速生成静音WAV，用于开发、测试和编排逻辑的离线验证。
type Provider struct {
	charsPerSecond float64
	sampleRate     int
}

func (p *Provider) Initialize(credentials map[string]string) error {
	if v, exists := credentials["chars_per_second"]; exists && v != "" {
		cps, err := strconv.ParseFloat(v, 64)
		if err != nil || cps <= 0 {
			return fmt.Errorf("无效的语速配置 chars_per_second: %q", v)
		}

		p.charsPerSecond = cps
	}

	if v, exists := credentials["sample_rate"]; exists && v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return fmt.Errorf("无效的采样率配置 sample_rate: %q", v)
		}

		p.sampleRate = rate
	}

	return nil
}

func (p *Provider) Name() string {
	return "mock"
}

// Synthesize 生成静音音频，时长 = 字符数/语速，秒数向下取整
func (p *Provider) Synthesize(ctx context.Context, text string, config tts.SynthesisConfig, outputPath string) tts.SynthesisResult {
	if err := ctx.Err(); err != nil {
		return failure("合成已取消: %v", err)
	}

	if !p.ValidateConfig(config) {
		return failure("无效的音色配置: voice_id=%q speed=%.2f pitch=%.2f volume=%.2f",
			config.VoiceID, config.Speed, config.Pitch, config.Volume)
	}

	textLen := len([]rune(text))
	sampleCount := int(float64(textLen) / p.charsPerSecond * float64(p.sampleRate))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return failure("创建输出目录失败: %v", err)
	}

	if err := p.writeSilentWAV(outputPath, sampleCount); err != nil {
		return failure("Mock音频生成失败: %v", err)
	}

	return tts.SynthesisResult{
		Success:   true,
		AudioPath: outputPath,
		Duration:  sampleCount / p.sampleRate,
		Metadata: map[string]any{
			"engine":      "mock",
			"text_length": textLen,
		},
	}
}

func (p *Provider) writeSilentWAV(outputPath string, sampleCount int) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, p.sampleRate, 16, 1, 1)

	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: p.sampleRate},
		Data:           make([]int, sampleCount),
		SourceBitDepth: 16,
	}

	if err := encoder.Write(buffer); err != nil {
		return err
	}

	return encoder.Close()
}

func (p *Provider) ListVoices(_ context.Context) ([]models.VoiceInfo, error) {
	return []models.VoiceInfo{
		{ID: "mock_male_1", DisplayName: "测试男声1", Gender: "male", Language: "zh-CN", Description: "Mock测试音色"},
		{ID: "mock_female_1", DisplayName: "测试女声1", Gender: "female", Language: "zh-CN", Description: "Mock测试音色"},
		{ID: "mock_narrator", DisplayName: "旁白", Gender: "neutral", Language: "zh-CN", Description: "旁白默认音色"},
	}, nil
}

// TestConnection Mock后端总是可用
func (p *Provider) TestConnection(_ context.Context) bool {
	return true
}

func (p *Provider) ValidateConfig(config tts.SynthesisConfig) bool {
	return tts.ValidateBounds(config)
}

func failure(format string, args ...any) tts.SynthesisResult {
	return tts.SynthesisResult{
		Success:      false,
		ErrorMessage: fmt.Sprintf(format, args...),
	}
}
