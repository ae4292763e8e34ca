// internal/audio/merge.go
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// 支持的导出格式
var supportedFormats = map[string]bool{
	"mp3": true,
	"wav": true,
	"m4a": true,
	"ogg": true,
}

// 音质档位到码率的映射
var qualityBitrates = map[string]string{
	"low":    "128k",
	"medium": "192k",
	"high":   "320k",
}

var (
	ErrNoSegments        = errors.New("没有可合并的音频片段")
	ErrUnsupportedFormat = errors.New("不支持的导出格式")
)

// Span 记录一个片段在成品音频中的起止时间(秒)
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// IsSupportedFormat 检查导出格式是否受支持
func IsSupportedFormat(format string) bool {
	return supportedFormats[strings.ToLower(format)]
}

// MergeWAV 把有序的WAV片段拼接为单个WAV文件，相邻片段之间插入
// silenceGapMs 毫秒的静音（第一段之前和最后一段之后不插入）。
// 所有片段必须与第一段采样率和声道数一致。输出先写临时文件再改名，
// 任何失败都不会留下半成品。返回每个片段在成品中的起止时间。
func MergeWAV(paths []string, outputPath string, silenceGapMs int) ([]Span, error) {
	if len(paths) == 0 {
		return nil, ErrNoSegments
	}

	var (
		merged     []int
		spans      []Span
		sampleRate int
		channels   int
	)

	for i, path := range paths {
		buffer, err := readWAV(path)
		if err != nil {
			return nil, fmt.Errorf("读取音频片段失败 %s: %w", path, err)
		}

		if i == 0 {
			sampleRate = buffer.Format.SampleRate
			channels = buffer.Format.NumChannels
		} else if buffer.Format.SampleRate != sampleRate || buffer.Format.NumChannels != channels {
			return nil, fmt.Errorf("音频片段格式不一致 %s: %d Hz/%d声道, 期望 %d Hz/%d声道",
				path, buffer.Format.SampleRate, buffer.Format.NumChannels, sampleRate, channels)
		}

		// 片段之间插入静音
		if i > 0 {
			gapSamples := sampleRate * channels * silenceGapMs / 1000
			merged = append(merged, make([]int, gapSamples)...)
		}

		start := frameOffsetSeconds(len(merged), sampleRate, channels)
		merged = append(merged, buffer.Data...)
		end := frameOffsetSeconds(len(merged), sampleRate, channels)

		spans = append(spans, Span{Start: start, End: end})
	}

	if err := writeWAV(outputPath, merged, sampleRate, channels); err != nil {
		return nil, err
	}

	return spans, nil
}

func frameOffsetSeconds(samples, sampleRate, channels int) float64 {
	return float64(samples/channels) / float64(sampleRate)
}

func readWAV(path string) (*goaudio.IntBuffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	if buffer.Format == nil || buffer.Format.SampleRate == 0 {
		return nil, fmt.Errorf("无效的WAV文件")
	}

	return buffer, nil
}

func writeWAV(outputPath string, data []int, sampleRate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	// 原子性写入：先写临时文件再改名
	tempPath := outputPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}

	encoder := wav.NewEncoder(file, sampleRate, 16, channels, 1)

	writeErr := encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})

	if writeErr == nil {
		writeErr = encoder.Close()
	} else {
		encoder.Close()
	}

	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		os.Remove(tempPath)

		return fmt.Errorf("写入合并音频失败: %w", writeErr)
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		os.Remove(tempPath)

		return fmt.Errorf("保存合并音频失败: %w", err)
	}

	return nil
}

// Transcode 把WAV成品转换为目标格式。wav 直接改名，
// 其余格式调用 ffmpeg，码率由 quality 决定。
func Transcode(ctx context.Context, inputPath, outputPath, format, quality string) error {
	format = strings.ToLower(format)
	if !IsSupportedFormat(format) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if format == "wav" {
		if inputPath == outputPath {
			return nil
		}

		return os.Rename(inputPath, outputPath)
	}

	bitrate, exists := qualityBitrates[strings.ToLower(quality)]
	if !exists {
		bitrate = qualityBitrates["high"]
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", inputPath,
		"-b:a", bitrate,
		outputPath)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outputPath)

		return fmt.Errorf("音频转码失败: %v: %s", err, strings.TrimSpace(string(output)))
	}

	return os.Remove(inputPath)
}

// DurationSeconds 返回WAV文件的时长(秒)
func DurationSeconds(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	duration, err := wav.NewDecoder(file).Duration()
	if err != nil {
		return 0, err
	}

	return duration.Seconds(), nil
}
