// internal/tts/providers/espeak/espeak.go
package espeak

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
)

func init() {
	tts.Register("espeak", func() tts.Provider {
		return &Provider{}
	})
}

// eSpeak 的基准参数
const (
	baseWordsPerMinute = 175 // espeak -s 默认值
	baseAmplitude      = 100 // espeak -a 默认值 (0-200)
	basePitch          = 50  // espeak -p 默认值 (0-99)
)

// Provider 通过本机 espeak/espeak-ng 命令行合成语音。
// 无需API凭据，适合离线部署。
type Provider struct {
	binPath string
}

func (p *Provider) Initialize(credentials map[string]string) error {
	if custom, exists := credentials["espeak_path"]; exists && custom != "" {
		p.binPath = custom

		return nil
	}

	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			p.binPath = path

			return nil
		}
	}

	return fmt.Errorf("espeak 可执行文件不在 PATH 中")
}

func (p *Provider) Name() string {
	return "espeak"
}

func (p *Provider) Synthesize(ctx context.Context, text string, config tts.SynthesisConfig, outputPath string) tts.SynthesisResult {
	if !p.ValidateConfig(config) {
		return tts.SynthesisResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("无效的音色配置: voice_id=%q", config.VoiceID),
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return tts.SynthesisResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("创建输出目录失败: %v", err),
		}
	}

	args := []string{
		"-v", config.VoiceID,
		"-s", strconv.Itoa(int(baseWordsPerMinute * config.Speed)),
		"-a", strconv.Itoa(int(baseAmplitude * config.Volume)),
		"-p", strconv.Itoa(int(basePitch * config.Pitch)),
		"-w", outputPath,
		text,
	}

	cmd := exec.CommandContext(ctx, p.binPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return tts.SynthesisResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("espeak 执行失败: %v: %s", err, strings.TrimSpace(string(output))),
		}
	}

	duration, err := wavDurationSeconds(outputPath)
	if err != nil {
		return tts.SynthesisResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("读取合成结果失败: %v", err),
		}
	}

	return tts.SynthesisResult{
		Success:   true,
		AudioPath: outputPath,
		Duration:  duration,
		Metadata:  map[string]any{"engine": "espeak"},
	}
}

func wavDurationSeconds(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	duration, err := wav.NewDecoder(file).Duration()
	if err != nil {
		return 0, err
	}

	return int(duration.Seconds()), nil
}

// ListVoices 解析 `espeak --voices` 的表格输出
func (p *Provider) ListVoices(ctx context.Context) ([]models.VoiceInfo, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "--voices")

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("获取espeak音色列表失败: %w", err)
	}

	return parseVoices(string(output)), nil
}

// 输出格式: Pty Language Age/Gender VoiceName File Other Languages
func parseVoices(output string) []models.VoiceInfo {
	var voices []models.VoiceInfo

	for i, line := range strings.Split(output, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		gender := "unknown"
		if parts := strings.SplitN(fields[2], "/", 2); len(parts) == 2 {
			switch parts[1] {
			case "M":
				gender = "male"
			case "F":
				gender = "female"
			}
		}

		voices = append(voices, models.VoiceInfo{
			ID:          fields[3],
			DisplayName: fields[3],
			Gender:      gender,
			Language:    fields[1],
		})
	}

	return voices
}

// TestConnection 检查 espeak 是否可执行
func (p *Provider) TestConnection(ctx context.Context) bool {
	if p.binPath == "" {
		return false
	}

	return exec.CommandContext(ctx, p.binPath, "--version").Run() == nil
}

func (p *Provider) ValidateConfig(config tts.SynthesisConfig) bool {
	return tts.ValidateBounds(config)
}
