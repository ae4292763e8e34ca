// internal/models/voice.go
package models

// VoiceProfile 绑定在角色上的声音配置
type VoiceProfile struct {
	Engine  string  `json:"engine"`   // TTS引擎名称
	VoiceID string  `json:"voice_id"` // 音色ID
	Speed   float64 `json:"speed"`    // 语速 (0.5-2.0)
	Pitch   float64 `json:"pitch"`    // 音调 (0.5-2.0)
	Volume  float64 `json:"volume"`   // 音量 (0.5-2.0)
	Emotion string  `json:"emotion,omitempty"`
}

// VoiceInfo 引擎提供的音色描述
type VoiceInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
	Language    string `json:"language"`
	Description string `json:"description,omitempty"`
}
