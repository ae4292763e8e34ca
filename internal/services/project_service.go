// internal/services/project_service.go
package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
)

// ProjectService 处理有声书项目的业务逻辑
type ProjectService struct {
	Repo *storage.Repository
}

// NewProjectService 创建项目服务
func NewProjectService(repo *storage.Repository) *ProjectService {
	return &ProjectService{Repo: repo}
}

// CreateProject 创建新项目
func (s *ProjectService) CreateProject(name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("项目名称不能为空", nil)
	}

	now := time.Now()
	project := &models.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Status:      models.ProjectStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.SaveProject(project); err != nil {
		return nil, apperrors.NewProcessingError("保存项目失败", err)
	}

	return project, nil
}

// GetProject 获取项目
func (s *ProjectService) GetProject(projectID string) (*models.Project, error) {
	project, err := s.Repo.GetProject(projectID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("项目不存在: "+projectID, err)
	}

	return project, nil
}

// ListProjects 列出所有项目
func (s *ProjectService) ListProjects() ([]*models.Project, error) {
	return s.Repo.ListProjects()
}

// UpdateProject 更新项目名称和描述
func (s *ProjectService) UpdateProject(projectID, name, description string) (*models.Project, error) {
	project, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		project.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		project.Description = description
	}
	project.UpdatedAt = time.Now()

	if err := s.Repo.SaveProject(project); err != nil {
		return nil, apperrors.NewProcessingError("保存项目失败", err)
	}

	return project, nil
}

// DeleteProject 删除项目及其全部数据
func (s *ProjectService) DeleteProject(projectID string) error {
	if err := s.Repo.DeleteProject(projectID); err != nil {
		return apperrors.NewNotFoundError("项目不存在: "+projectID, err)
	}

	return nil
}

// RefreshStats 重新统计项目的章节数、角色数和总时长
func (s *ProjectService) RefreshStats(projectID string) (*models.Project, error) {
	project, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	chapters, err := s.Repo.ListChapters(projectID)
	if err != nil {
		return nil, err
	}

	characters, err := s.Repo.ListCharacters(projectID)
	if err != nil {
		return nil, err
	}

	totalDuration := 0
	completed := 0
	for _, chapter := range chapters {
		totalDuration += chapter.Duration
		if chapter.Status == models.ChapterStatusCompleted {
			completed++
		}
	}

	project.ChaptersCount = len(chapters)
	project.CharactersCount = len(characters)
	project.TotalDuration = totalDuration

	switch {
	case len(chapters) > 0 && completed == len(chapters):
		project.Status = models.ProjectStatusCompleted
	case completed > 0:
		project.Status = models.ProjectStatusProcessing
	}
	project.UpdatedAt = time.Now()

	if err := s.Repo.SaveProject(project); err != nil {
		return nil, apperrors.NewProcessingError("保存项目失败", err)
	}

	return project, nil
}
