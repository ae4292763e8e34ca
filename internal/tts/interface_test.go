// internal/tts/interface_test.go
package tts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
)

type stubProvider struct {
	initErr error
}

func (s *stubProvider) Initialize(_ map[string]string) error { return s.initErr }
func (s *stubProvider) Name() string                         { return "stub" }

func (s *stubProvider) Synthesize(_ context.Context, _ string, _ tts.SynthesisConfig, _ string) tts.SynthesisResult {
	return tts.SynthesisResult{Success: true}
}

func (s *stubProvider) ListVoices(_ context.Context) ([]models.VoiceInfo, error) {
	return nil, nil
}

func (s *stubProvider) TestConnection(_ context.Context) bool { return true }

func (s *stubProvider) ValidateConfig(config tts.SynthesisConfig) bool {
	return tts.ValidateBounds(config)
}

func TestRegistryCreateKnownEngine(t *testing.T) {
	registry := tts.NewRegistry()
	registry.Register("stub", func() tts.Provider { return &stubProvider{} })

	provider, err := registry.Create("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", provider.Name())

	// 引擎名大小写不敏感
	provider, err = registry.Create("STUB", nil)
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestRegistryCreateUnknownEngineListsAvailable(t *testing.T) {
	registry := tts.NewRegistry()
	registry.Register("stub", func() tts.Provider { return &stubProvider{} })
	registry.Register("other", func() tts.Provider { return &stubProvider{} })

	_, err := registry.Create("azure", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, tts.ErrUnknownEngine)
	assert.Contains(t, err.Error(), "azure")
	assert.Contains(t, err.Error(), "other, stub")
}

func TestRegistryCreateInitializeFailure(t *testing.T) {
	registry := tts.NewRegistry()
	registry.Register("stub", func() tts.Provider {
		return &stubProvider{initErr: assert.AnError}
	})

	_, err := registry.Create("stub", map[string]string{"api_key": ""})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestValidateBounds(t *testing.T) {
	valid := tts.SynthesisConfig{VoiceID: "v1", Speed: 1.0, Pitch: 1.0, Volume: 1.0}
	assert.True(t, tts.ValidateBounds(valid))

	tests := []struct {
		name   string
		mutate func(*tts.SynthesisConfig)
	}{
		{"empty voice id", func(c *tts.SynthesisConfig) { c.VoiceID = "" }},
		{"speed too low", func(c *tts.SynthesisConfig) { c.Speed = 0.4 }},
		{"speed too high", func(c *tts.SynthesisConfig) { c.Speed = 2.1 }},
		{"pitch too low", func(c *tts.SynthesisConfig) { c.Pitch = 0 }},
		{"volume too high", func(c *tts.SynthesisConfig) { c.Volume = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			assert.False(t, tts.ValidateBounds(config))
		})
	}

	// 边界值本身合法
	edge := tts.SynthesisConfig{VoiceID: "v1", Speed: 0.5, Pitch: 2.0, Volume: 0.5}
	assert.True(t, tts.ValidateBounds(edge))
}
