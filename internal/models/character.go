// internal/models/character.go
package models

import "time"

// Character 表示小说中的一个说话角色
type Character struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	Name          string        `json:"name"`
	Avatar        string        `json:"avatar,omitempty"`
	Description   string        `json:"description,omitempty"`
	DialogueCount int           `json:"dialogue_count"`
	TotalDuration int           `json:"total_duration"` // 总时长(秒)
	Voice         *VoiceProfile `json:"voice_config,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
