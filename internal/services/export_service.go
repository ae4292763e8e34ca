// internal/services/export_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Voxlit/NovelVoiceStudio/internal/audio"
	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
	"github.com/Voxlit/NovelVoiceStudio/internal/utils"
)

// ExportService 音频装配器：把已合成的段落拼接为成品有声书。
// 拼接只使用已完成的段落，按 OrderIndex 排序，相邻段落之间插入固定静音。
type ExportService struct {
	Repo     *storage.Repository
	Chapters *ChapterService
	Locks    *LockManager

	logger *logrus.Entry
}

// NewExportService 创建导出服务
func NewExportService(repo *storage.Repository, chapters *ChapterService, locks *LockManager) *ExportService {
	return &ExportService{
		Repo:     repo,
		Chapters: chapters,
		Locks:    locks,
		logger:   logrus.WithField("service", "export"),
	}
}

// exportDir 返回成品音频的存放目录
func exportDir(projectID string) string {
	return filepath.Join(config.GetCurrentConfig().DataDir, "exports", projectID)
}

// ExportChapter 导出单章成品音频，成品文件名为 chapter_<章节ID>.<格式>，
// 重复导出覆盖旧文件。章节下没有任何已完成段落时返回 nil
// （导出物不存在而非空文件）。拼接或转码失败时不落盘任何成品，
// 也不产生导出记录。
func (s *ExportService) ExportChapter(ctx context.Context, projectID, chapterID, format, quality string) (*models.AudioExport, error) {
	if !audio.IsSupportedFormat(format) {
		return nil, apperrors.NewValidationError("不支持的导出格式: "+format, nil)
	}

	chapter, err := s.Chapters.GetChapter(projectID, chapterID)
	if err != nil {
		return nil, err
	}

	var export *models.AudioExport

	err = s.Locks.ExecuteWithChapterReadLock(chapterID, func() error {
		dialogues, err := s.completedDialogues(projectID, chapterID)
		if err != nil {
			return err
		}
		if len(dialogues) == 0 {
			return nil
		}

		exportID := uuid.New().String()
		outputPath := filepath.Join(exportDir(projectID), "chapter_"+chapterID+"."+format)

		if err := s.assemble(ctx, projectID, dialogues, outputPath, format, quality); err != nil {
			return err
		}

		export, err = s.saveExportRecord(exportID, projectID, chapterID, format, quality, outputPath,
			models.ExportRange{ChapterIDs: []string{chapterID}})
		return err
	})
	if err != nil {
		return nil, err
	}

	if export != nil {
		s.logger.WithFields(logrus.Fields{
			"chapter": chapter.Title,
			"format":  format,
			"path":    export.FilePath,
		}).Info("章节导出完成")
	}

	return export, nil
}

// ExportProject 导出项目的成品音频，章节按 OrderIndex 顺序拼接。
// chapterIDs 为空时覆盖全部章节，否则只导出给定的章节子集（仍按
// OrderIndex 排序）。成品文件名为 project_<项目ID>.<格式>，重复导出
// 覆盖旧文件。覆盖范围内没有任何已完成段落时返回 nil。
func (s *ExportService) ExportProject(ctx context.Context, projectID string, chapterIDs []string, format, quality string) (*models.AudioExport, error) {
	if !audio.IsSupportedFormat(format) {
		return nil, apperrors.NewValidationError("不支持的导出格式: "+format, nil)
	}

	chapters, err := s.Repo.ListChapters(projectID)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, apperrors.NewNotFoundError("项目没有章节: "+projectID, nil)
	}

	requested := make(map[string]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		requested[id] = true
	}

	var (
		dialogues []*models.Dialogue
		covered   []string
	)

	for _, chapter := range chapters {
		if len(requested) > 0 && !requested[chapter.ID] {
			continue
		}

		completed, err := s.completedDialogues(projectID, chapter.ID)
		if err != nil {
			return nil, err
		}
		if len(completed) == 0 {
			continue
		}

		dialogues = append(dialogues, completed...)
		covered = append(covered, chapter.ID)
	}

	if len(dialogues) == 0 {
		return nil, nil
	}

	exportID := uuid.New().String()
	outputPath := filepath.Join(exportDir(projectID), "project_"+projectID+"."+format)

	if err := s.assemble(ctx, projectID, dialogues, outputPath, format, quality); err != nil {
		return nil, err
	}

	export, err := s.saveExportRecord(exportID, projectID, "", format, quality, outputPath,
		models.ExportRange{ChapterIDs: covered})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"project":  projectID,
		"chapters": len(covered),
		"format":   format,
	}).Info("项目导出完成")

	return export, nil
}

// completedDialogues 返回章节下已完成的段落，按 OrderIndex 升序
func (s *ExportService) completedDialogues(projectID, chapterID string) ([]*models.Dialogue, error) {
	dialogues, err := s.Repo.ListDialoguesByChapter(projectID, chapterID)
	if err != nil {
		return nil, err
	}

	var completed []*models.Dialogue
	for _, dialogue := range dialogues {
		if dialogue.Status == models.DialogueStatusCompleted && dialogue.AudioPath != "" {
			completed = append(completed, dialogue)
		}
	}

	return completed, nil
}

// assemble 拼接段落音频并转码为目标格式，同时把每个段落在成品中的
// 起止时间回填到段落记录上。任何失败都不会留下半成品文件。
func (s *ExportService) assemble(ctx context.Context, projectID string, dialogues []*models.Dialogue,
	outputPath, format, quality string) error {
	paths := make([]string, 0, len(dialogues))
	for _, dialogue := range dialogues {
		paths = append(paths, dialogue.AudioPath)
	}

	mergedPath := outputPath
	if format != "wav" {
		mergedPath = outputPath + ".merge.wav"
	}

	silenceGapMs := config.GetCurrentConfig().SilenceGapMs

	spans, err := audio.MergeWAV(paths, mergedPath, silenceGapMs)
	if err != nil {
		return apperrors.NewAssemblyError("拼接音频失败", err)
	}

	if err := audio.Transcode(ctx, mergedPath, outputPath, format, quality); err != nil {
		os.Remove(mergedPath)
		return apperrors.NewAssemblyError("转码失败", err)
	}

	// 回填段落在成品中的起止时间
	for i, dialogue := range dialogues {
		dialogue.StartTime = spans[i].Start
		dialogue.EndTime = spans[i].End
		dialogue.UpdatedAt = time.Now()

		if err := s.Repo.SaveDialogue(projectID, dialogue); err != nil {
			return apperrors.NewProcessingError("回填段落时间失败", err)
		}
	}

	return nil
}

// saveExportRecord 写入导出记录
func (s *ExportService) saveExportRecord(exportID, projectID, chapterID, format, quality, outputPath string,
	exportRange models.ExportRange) (*models.AudioExport, error) {
	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, apperrors.NewAssemblyError("读取导出文件失败", err)
	}

	export := &models.AudioExport{
		ID:        exportID,
		ProjectID: projectID,
		ChapterID: chapterID,
		Format:    format,
		Quality:   quality,
		FilePath:  outputPath,
		FileSize:  info.Size(),
		Range:     exportRange,
		CreatedAt: time.Now(),
	}

	if err := s.Repo.SaveExport(export); err != nil {
		// 记录写不进去时回收成品文件，保持导出的原子性
		os.Remove(outputPath)
		return nil, apperrors.NewProcessingError("保存导出记录失败", err)
	}

	utils.GetMetrics().Counter("exports_completed").Inc()

	return export, nil
}

// GetExport 获取导出记录
func (s *ExportService) GetExport(projectID, exportID string) (*models.AudioExport, error) {
	export, err := s.Repo.GetExport(projectID, exportID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("导出记录不存在: "+exportID, err)
	}

	return export, nil
}

// ListExports 列出项目的导出记录
func (s *ExportService) ListExports(projectID string) ([]*models.AudioExport, error) {
	return s.Repo.ListExports(projectID)
}

// DeleteExport 删除导出记录及其成品文件
func (s *ExportService) DeleteExport(projectID, exportID string) error {
	export, err := s.GetExport(projectID, exportID)
	if err != nil {
		return err
	}

	if export.FilePath != "" {
		if err := os.Remove(export.FilePath); err != nil && !os.IsNotExist(err) {
			return apperrors.NewProcessingError(
				fmt.Sprintf("删除导出文件失败: %s", export.FilePath), err)
		}
	}

	return s.Repo.DeleteExport(projectID, exportID)
}
