// internal/models/project.go
package models

import "time"

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"      // 草稿
	ProjectStatusProcessing ProjectStatus = "processing" // 处理中
	ProjectStatusCompleted  ProjectStatus = "completed"  // 已完成
)

// Project 表示一个有声书制作项目
type Project struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	CoverImage      string        `json:"cover_image,omitempty"`
	Status          ProjectStatus `json:"status"`
	ChaptersCount   int           `json:"chapters_count"`
	CharactersCount int           `json:"characters_count"`
	TotalDuration   int           `json:"total_duration"` // 总时长(秒)
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
