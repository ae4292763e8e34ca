// internal/models/chapter.go
package models

import "time"

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusPending    ChapterStatus = "pending"    // 待处理
	ChapterStatusProcessing ChapterStatus = "processing" // 处理中
	ChapterStatusCompleted  ChapterStatus = "completed"  // 已完成
	ChapterStatusError      ChapterStatus = "error"      // 处理出错
)

// Chapter 表示项目中的一个章节
type Chapter struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"project_id"`
	Title      string        `json:"title"`
	OrderIndex int           `json:"order_index"` // 章节顺序，从0开始连续
	Content    string        `json:"content"`
	WordCount  int           `json:"word_count"`
	Status     ChapterStatus `json:"status"`
	Duration   int           `json:"duration"` // 时长(秒)
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ChapterDraft 是分章器的输出：尚未持久化的章节草稿。
// OrderIndex 在一次分割中从0开始连续分配，内容不可再变。
type ChapterDraft struct {
	Title      string `json:"title"`
	OrderIndex int    `json:"order_index"`
	Content    string `json:"content"`
	WordCount  int    `json:"word_count"`
}
