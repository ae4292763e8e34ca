// internal/services/chapter_service.go
package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/parser"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
)

// ChapterService 处理章节相关的业务逻辑
type ChapterService struct {
	Repo     *storage.Repository
	Projects *ProjectService
}

// NewChapterService 创建章节服务
func NewChapterService(repo *storage.Repository, projects *ProjectService) *ChapterService {
	return &ChapterService{
		Repo:     repo,
		Projects: projects,
	}
}

// ImportText 导入小说文本并自动分章。
// 分章结果的 OrderIndex 接在项目已有章节之后继续连续编号，
// 文本无法识别出任何章节标题时整体作为单章"正文"导入。
func (s *ChapterService) ImportText(projectID, text string) ([]*models.Chapter, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("导入文本不能为空", nil)
	}

	if _, err := s.Projects.GetProject(projectID); err != nil {
		return nil, err
	}

	existing, err := s.Repo.ListChapters(projectID)
	if err != nil {
		return nil, err
	}
	baseIndex := len(existing)

	drafts := parser.SplitChapters(text)

	now := time.Now()
	chapters := make([]*models.Chapter, 0, len(drafts))

	for _, draft := range drafts {
		chapter := &models.Chapter{
			ID:         uuid.New().String(),
			ProjectID:  projectID,
			Title:      draft.Title,
			OrderIndex: baseIndex + draft.OrderIndex,
			Content:    draft.Content,
			WordCount:  draft.WordCount,
			Status:     models.ChapterStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := s.Repo.SaveChapter(chapter); err != nil {
			return nil, apperrors.NewProcessingError("保存章节失败: "+chapter.Title, err)
		}

		chapters = append(chapters, chapter)
	}

	if _, err := s.Projects.RefreshStats(projectID); err != nil {
		return nil, err
	}

	return chapters, nil
}

// GetChapter 获取章节
func (s *ChapterService) GetChapter(projectID, chapterID string) (*models.Chapter, error) {
	chapter, err := s.Repo.GetChapter(projectID, chapterID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("章节不存在: "+chapterID, err)
	}

	return chapter, nil
}

// ListChapters 按顺序列出项目的章节
func (s *ChapterService) ListChapters(projectID string) ([]*models.Chapter, error) {
	return s.Repo.ListChapters(projectID)
}

// UpdateChapter 更新章节标题或内容。
// 内容变化会清空已有的段落解析结果，章节回到待处理状态。
func (s *ChapterService) UpdateChapter(projectID, chapterID, title, content string) (*models.Chapter, error) {
	chapter, err := s.GetChapter(projectID, chapterID)
	if err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title != "" {
		chapter.Title = title
	}

	if content != "" && content != chapter.Content {
		chapter.Content = content
		chapter.WordCount = len([]rune(content))
		chapter.Status = models.ChapterStatusPending
		chapter.Duration = 0

		if err := s.Repo.DeleteDialoguesByChapter(projectID, chapterID); err != nil {
			return nil, apperrors.NewProcessingError("清理旧段落失败", err)
		}
	}

	chapter.UpdatedAt = time.Now()

	if err := s.Repo.SaveChapter(chapter); err != nil {
		return nil, apperrors.NewProcessingError("保存章节失败", err)
	}

	return chapter, nil
}

// DeleteChapter 删除章节及其段落
func (s *ChapterService) DeleteChapter(projectID, chapterID string) error {
	if _, err := s.GetChapter(projectID, chapterID); err != nil {
		return err
	}

	if err := s.Repo.DeleteDialoguesByChapter(projectID, chapterID); err != nil {
		return apperrors.NewProcessingError("删除章节段落失败", err)
	}

	if err := s.Repo.DeleteChapter(projectID, chapterID); err != nil {
		return apperrors.NewProcessingError("删除章节失败", err)
	}

	_, err := s.Projects.RefreshStats(projectID)
	return err
}

// EstimateDuration 估算章节的朗读时长(秒)
func (s *ChapterService) EstimateDuration(projectID, chapterID string) (int, error) {
	chapter, err := s.GetChapter(projectID, chapterID)
	if err != nil {
		return 0, err
	}

	return parser.EstimateDuration(chapter.Content, 0), nil
}
