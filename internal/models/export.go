// internal/models/export.go
package models

import "time"

// ExportRange 描述一次导出覆盖了哪些章节
type ExportRange struct {
	ChapterIDs []string `json:"chapter_ids"`
}

// AudioExport 导出记录：一次成功导出产生的成品音频及其元数据
type AudioExport struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"project_id"`
	ChapterID string      `json:"chapter_id,omitempty"` // 单章导出时记录
	Format    string      `json:"format"`               // mp3/wav/m4a/ogg
	Quality   string      `json:"quality"`              // low/medium/high
	FilePath  string      `json:"file_path"`
	FileSize  int64       `json:"file_size"`
	Range     ExportRange `json:"export_range"`
	CreatedAt time.Time   `json:"created_at"`
}

// BatchFailedItem 批量合成中单条失败的明细
type BatchFailedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchReport 批量合成的聚合结果。
// SuccessCount+FailedCount+SkippedCount == Total；
// Skipped 仅在任务被取消、条目尚未派发时出现，与失败严格区分。
type BatchReport struct {
	TaskID       string            `json:"task_id,omitempty"`
	Total        int               `json:"total"`
	SuccessCount int               `json:"success_count"`
	FailedCount  int               `json:"failed_count"`
	SkippedCount int               `json:"skipped_count"`
	FailedItems  []BatchFailedItem `json:"failed_items"`
	SkippedIDs   []string          `json:"skipped_ids,omitempty"`
}
