// internal/audio/merge_test.go
package audio_test

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voxlit/NovelVoiceStudio/internal/audio"
)

const testSampleRate = 16000

// writeTestWAV 生成指定时长的静音测试片段
func writeTestWAV(t *testing.T, path string, seconds float64) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	encoder := wav.NewEncoder(file, testSampleRate, 16, 1, 1)
	err = encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           make([]int, int(seconds*testSampleRate)),
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	require.NoError(t, encoder.Close())
}

func TestMergeWAVInsertsGapBetweenSegmentsOnly(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "0.wav")
	second := filepath.Join(dir, "2.wav")
	writeTestWAV(t, first, 1)
	writeTestWAV(t, second, 2)

	output := filepath.Join(dir, "merged.wav")

	// 两段之间恰好一个500ms间隔：1 + 0.5 + 2 = 3.5秒
	spans, err := audio.MergeWAV([]string{first, second}, output, 500)
	require.NoError(t, err)
	require.Len(t, spans, 2)

	assert.InDelta(t, 0.0, spans[0].Start, 0.001)
	assert.InDelta(t, 1.0, spans[0].End, 0.001)
	assert.InDelta(t, 1.5, spans[1].Start, 0.001)
	assert.InDelta(t, 3.5, spans[1].End, 0.001)

	total, err := audio.DurationSeconds(output)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, total, 0.001)
}

func TestMergeWAVSingleSegmentNoGap(t *testing.T) {
	dir := t.TempDir()
	segment := filepath.Join(dir, "only.wav")
	writeTestWAV(t, segment, 1.5)

	output := filepath.Join(dir, "merged.wav")

	spans, err := audio.MergeWAV([]string{segment}, output, 500)
	require.NoError(t, err)
	require.Len(t, spans, 1)

	total, err := audio.DurationSeconds(output)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, total, 0.001)
}

func TestMergeWAVEmptyInput(t *testing.T) {
	_, err := audio.MergeWAV(nil, filepath.Join(t.TempDir(), "out.wav"), 500)
	assert.ErrorIs(t, err, audio.ErrNoSegments)
}

func TestMergeWAVMissingSegmentFailsAtomically(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.wav")
	writeTestWAV(t, present, 1)

	output := filepath.Join(dir, "merged.wav")

	_, err := audio.MergeWAV([]string{present, filepath.Join(dir, "missing.wav")}, output, 500)
	require.Error(t, err)

	// 失败时不留下任何输出文件
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(output + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestIsSupportedFormat(t *testing.T) {
	for _, format := range []string{"mp3", "wav", "m4a", "ogg", "MP3"} {
		assert.True(t, audio.IsSupportedFormat(format), format)
	}

	assert.False(t, audio.IsSupportedFormat("flac"))
	assert.False(t, audio.IsSupportedFormat(""))
}
