// internal/services/dialogue_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/parser"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
)

// DialogueService 处理对话/旁白段落的业务逻辑
type DialogueService struct {
	Repo       *storage.Repository
	Chapters   *ChapterService
	Characters *CharacterService
	Locks      *LockManager
}

// NewDialogueService 创建段落服务
func NewDialogueService(repo *storage.Repository, chapters *ChapterService, characters *CharacterService, locks *LockManager) *DialogueService {
	return &DialogueService{
		Repo:       repo,
		Chapters:   chapters,
		Characters: characters,
		Locks:      locks,
	}
}

// ParseChapter 解析章节文本，提取对话和旁白段落并持久化。
// 重复解析会替换章节下已有的段落。新段落全部处于待生成状态，
// 同时根据说话人自动补全项目的角色表。
func (s *DialogueService) ParseChapter(projectID, chapterID string) ([]*models.Dialogue, error) {
	chapter, err := s.Chapters.GetChapter(projectID, chapterID)
	if err != nil {
		return nil, err
	}

	var dialogues []*models.Dialogue

	err = s.Locks.ExecuteWithChapterLock(chapterID, func() error {
		drafts := parser.ExtractDialogues(chapter.Content)

		// 先同步角色，段落需要绑定角色ID
		characters, err := s.Characters.SyncFromDrafts(projectID, drafts)
		if err != nil {
			return err
		}

		characterIDs := make(map[string]string, len(characters))
		for _, character := range characters {
			characterIDs[character.Name] = character.ID
		}

		if err := s.Repo.DeleteDialoguesByChapter(projectID, chapterID); err != nil {
			return apperrors.NewProcessingError("清理旧段落失败", err)
		}

		now := time.Now()
		dialogues = make([]*models.Dialogue, 0, len(drafts))

		for _, draft := range drafts {
			dialogue := &models.Dialogue{
				ID:         uuid.New().String(),
				ChapterID:  chapterID,
				OrderIndex: draft.OrderIndex,
				Type:       draft.Type,
				Content:    draft.Content,
				Status:     models.DialogueStatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}

			if draft.Type == models.DialogueTypeDialogue {
				dialogue.SpeakerName = draft.Speaker
				dialogue.CharacterID = characterIDs[draft.Speaker]
			}

			if err := s.Repo.SaveDialogue(projectID, dialogue); err != nil {
				return apperrors.NewProcessingError("保存段落失败", err)
			}

			dialogues = append(dialogues, dialogue)
		}

		chapter.Status = models.ChapterStatusProcessing
		chapter.UpdatedAt = now

		return s.Repo.SaveChapter(chapter)
	})
	if err != nil {
		return nil, err
	}

	return dialogues, nil
}

// ListDialogues 按顺序列出章节的段落
func (s *DialogueService) ListDialogues(projectID, chapterID string) ([]*models.Dialogue, error) {
	return s.Repo.ListDialoguesByChapter(projectID, chapterID)
}

// GetDialogue 获取段落
func (s *DialogueService) GetDialogue(projectID, dialogueID string) (*models.Dialogue, error) {
	dialogue, err := s.Repo.GetDialogue(projectID, dialogueID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("段落不存在: "+dialogueID, err)
	}

	return dialogue, nil
}

// UpdateDialogue 修改段落文本或说话人。
// 内容变化后已生成的音频失效，段落回到待生成状态。
func (s *DialogueService) UpdateDialogue(projectID, dialogueID, content, speaker string) (*models.Dialogue, error) {
	dialogue, err := s.GetDialogue(projectID, dialogueID)
	if err != nil {
		return nil, err
	}

	changed := false

	if content != "" && content != dialogue.Content {
		dialogue.Content = content
		changed = true
	}

	if speaker = strings.TrimSpace(speaker); speaker != "" && speaker != dialogue.SpeakerName {
		character, err := s.Characters.GetOrCreate(projectID, speaker)
		if err != nil {
			return nil, err
		}

		dialogue.SpeakerName = speaker
		dialogue.CharacterID = character.ID
		dialogue.Type = models.DialogueTypeDialogue
		changed = true
	}

	if changed {
		dialogue.Status = models.DialogueStatusPending
		dialogue.AudioPath = ""
		dialogue.Duration = 0
		dialogue.StartTime = 0
		dialogue.EndTime = 0
	}
	dialogue.UpdatedAt = time.Now()

	if err := s.Repo.SaveDialogue(projectID, dialogue); err != nil {
		return nil, apperrors.NewProcessingError("保存段落失败", err)
	}

	return dialogue, nil
}

// TransitionStatus 推进段落的合成状态。
// 状态只能沿 pending→synthesizing→completed/failed 前进，
// 重试允许 failed→synthesizing，completed 不可被覆盖。
func (s *DialogueService) TransitionStatus(projectID, dialogueID string, next models.DialogueStatus) (*models.Dialogue, error) {
	dialogue, err := s.GetDialogue(projectID, dialogueID)
	if err != nil {
		return nil, err
	}

	if !validTransition(dialogue.Status, next) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("非法的状态迁移: %s -> %s", dialogue.Status, next), nil)
	}

	dialogue.Status = next
	dialogue.UpdatedAt = time.Now()

	if err := s.Repo.SaveDialogue(projectID, dialogue); err != nil {
		return nil, apperrors.NewProcessingError("保存段落失败", err)
	}

	return dialogue, nil
}

func validTransition(from, to models.DialogueStatus) bool {
	switch from {
	case models.DialogueStatusPending:
		return to == models.DialogueStatusSynthesizing
	case models.DialogueStatusSynthesizing:
		return to == models.DialogueStatusCompleted || to == models.DialogueStatusFailed
	case models.DialogueStatusFailed:
		return to == models.DialogueStatusSynthesizing
	case models.DialogueStatusCompleted:
		return false
	}

	return false
}
