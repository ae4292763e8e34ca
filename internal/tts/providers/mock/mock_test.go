// internal/tts/providers/mock/mock_test.go
package mock_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
	_ "github.com/Voxlit/NovelVoiceStudio/internal/tts/providers/mock"
)

func validConfig() tts.SynthesisConfig {
	return tts.SynthesisConfig{
		Engine:  "mock",
		VoiceID: "mock_male_1",
		Speed:   1.0,
		Pitch:   1.0,
		Volume:  1.0,
	}
}

func TestMockRegisteredGlobally(t *testing.T) {
	assert.Contains(t, tts.AvailableEngines(), "mock")
}

func TestMockSynthesizeWritesSilentWAV(t *testing.T) {
	provider, err := tts.Create("mock", nil)
	require.NoError(t, err)

	outputPath := filepath.Join(t.TempDir(), "audio", "dialogue_1.wav")

	// 7个字符 / 3.5字每秒 = 2秒
	result := provider.Synthesize(context.Background(), strings.Repeat("字", 7), validConfig(), outputPath)
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, outputPath, result.AudioPath)
	assert.Equal(t, 2, result.Duration)

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	decoder := wav.NewDecoder(file)
	duration, err := decoder.Duration()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, duration.Seconds(), 0.01)
}

func TestMockSynthesizeDeterministic(t *testing.T) {
	provider, err := tts.Create("mock", nil)
	require.NoError(t, err)

	dir := t.TempDir()

	first := provider.Synthesize(context.Background(), "相同的文本", validConfig(), filepath.Join(dir, "a.wav"))
	second := provider.Synthesize(context.Background(), "相同的文本", validConfig(), filepath.Join(dir, "b.wav"))

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Duration, second.Duration)

	a, err := os.ReadFile(filepath.Join(dir, "a.wav"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.wav"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockSynthesizeInvalidConfigFailsWithoutPanic(t *testing.T) {
	provider, err := tts.Create("mock", nil)
	require.NoError(t, err)

	config := validConfig()
	config.Speed = 5.0

	result := provider.Synthesize(context.Background(), "文本", config, filepath.Join(t.TempDir(), "x.wav"))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestMockSynthesizeCancelledContext(t *testing.T) {
	provider, err := tts.Create("mock", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := provider.Synthesize(ctx, "文本", validConfig(), filepath.Join(t.TempDir(), "x.wav"))
	assert.False(t, result.Success)
}

func TestMockListVoicesAndConnection(t *testing.T) {
	provider, err := tts.Create("mock", nil)
	require.NoError(t, err)

	voices, err := provider.ListVoices(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, voices)

	ids := make([]string, 0, len(voices))
	for _, voice := range voices {
		ids = append(ids, voice.ID)
	}

	assert.Contains(t, ids, "mock_narrator")
	assert.True(t, provider.TestConnection(context.Background()))
}

func TestMockInitializeOverrides(t *testing.T) {
	provider, err := tts.Create("mock", map[string]string{"chars_per_second": "7"})
	require.NoError(t, err)

	result := provider.Synthesize(context.Background(), strings.Repeat("字", 14), validConfig(),
		filepath.Join(t.TempDir(), "x.wav"))
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Duration)

	_, err = tts.Create("mock", map[string]string{"chars_per_second": "abc"})
	assert.Error(t, err)
}
