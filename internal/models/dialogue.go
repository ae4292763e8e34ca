// internal/models/dialogue.go
package models

import "time"

// DialogueType 段落类型
type DialogueType string

const (
	DialogueTypeDialogue  DialogueType = "dialogue"  // 对话
	DialogueTypeNarration DialogueType = "narration" // 旁白
)

// DialogueStatus 合成状态。
// 状态只沿 pending→synthesizing→completed/failed 前进；
// 重试从 failed 或 pending 重新进入 synthesizing，completed 不会被隐式覆盖。
type DialogueStatus string

const (
	DialogueStatusPending      DialogueStatus = "pending"      // 待生成
	DialogueStatusSynthesizing DialogueStatus = "synthesizing" // 生成中
	DialogueStatusCompleted    DialogueStatus = "completed"    // 已完成
	DialogueStatusFailed       DialogueStatus = "failed"       // 生成失败
)

// Dialogue 表示章节中的一个对话/旁白段落
type Dialogue struct {
	ID          string         `json:"id"`
	ChapterID   string         `json:"chapter_id"`
	CharacterID string         `json:"character_id,omitempty"` // 旁白为空
	SpeakerName string         `json:"speaker_name,omitempty"` // 仅对话段落存在
	OrderIndex  int            `json:"order_index"`            // 段落顺序，章节内从0开始连续
	Type        DialogueType   `json:"type"`
	Content     string         `json:"content"`
	StartTime   float64        `json:"start_time"` // 合成进成品后回填(秒)
	EndTime     float64        `json:"end_time"`
	AudioPath   string         `json:"audio_path,omitempty"` // status=completed 时有效
	Duration    int            `json:"duration"`             // 音频时长(秒)
	Status      DialogueStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DialogueDraft 是对话提取器的输出：尚未持久化的段落记录
type DialogueDraft struct {
	Type       DialogueType `json:"type"`
	Speaker    string       `json:"speaker,omitempty"`
	Content    string       `json:"content"`
	OrderIndex int          `json:"order_index"`
}
