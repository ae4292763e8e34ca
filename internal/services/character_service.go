// internal/services/character_service.go
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
)

// CharacterService 处理角色及其声音配置的业务逻辑
type CharacterService struct {
	Repo *storage.Repository
}

// NewCharacterService 创建角色服务
func NewCharacterService(repo *storage.Repository) *CharacterService {
	return &CharacterService{Repo: repo}
}

// GetCharacter 获取角色
func (s *CharacterService) GetCharacter(projectID, characterID string) (*models.Character, error) {
	character, err := s.Repo.GetCharacter(projectID, characterID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("角色不存在: "+characterID, err)
	}

	return character, nil
}

// ListCharacters 按名称列出项目的角色
func (s *CharacterService) ListCharacters(projectID string) ([]*models.Character, error) {
	return s.Repo.ListCharacters(projectID)
}

// GetOrCreate 按名称查找角色，不存在则创建。
// 新角色不预设声音配置，配置前合成时回退到旁白默认声音。
func (s *CharacterService) GetOrCreate(projectID, name string) (*models.Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("角色名称不能为空", nil)
	}

	character, err := s.Repo.GetCharacterByName(projectID, name)
	if err == nil {
		return character, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	character = &models.Character{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Repo.SaveCharacter(character); err != nil {
		return nil, apperrors.NewProcessingError("保存角色失败: "+name, err)
	}

	return character, nil
}

// SyncFromDrafts 根据段落草稿中的说话人补全角色表，返回项目的全部角色。
// 已存在的角色保持原有声音配置不变。
func (s *CharacterService) SyncFromDrafts(projectID string, drafts []models.DialogueDraft) ([]*models.Character, error) {
	seen := make(map[string]bool)

	for _, draft := range drafts {
		if draft.Type != models.DialogueTypeDialogue || draft.Speaker == "" || seen[draft.Speaker] {
			continue
		}
		seen[draft.Speaker] = true

		if _, err := s.GetOrCreate(projectID, draft.Speaker); err != nil {
			return nil, err
		}
	}

	return s.Repo.ListCharacters(projectID)
}

// RefreshStats 重新统计角色的段落数和累计音频时长
func (s *CharacterService) RefreshStats(projectID, chapterID string) error {
	dialogues, err := s.Repo.ListDialoguesByChapter(projectID, chapterID)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	durations := make(map[string]int)

	for _, dialogue := range dialogues {
		if dialogue.CharacterID == "" {
			continue
		}

		counts[dialogue.CharacterID]++
		if dialogue.Status == models.DialogueStatusCompleted {
			durations[dialogue.CharacterID] += dialogue.Duration
		}
	}

	for characterID, count := range counts {
		character, err := s.Repo.GetCharacter(projectID, characterID)
		if err != nil {
			continue
		}

		character.DialogueCount = count
		character.TotalDuration = durations[characterID]
		character.UpdatedAt = time.Now()

		if err := s.Repo.SaveCharacter(character); err != nil {
			return apperrors.NewProcessingError("保存角色统计失败", err)
		}
	}

	return nil
}

// UpdateVoice 更新角色的声音配置。
// 引擎必须已注册，参数必须在合法区间内。
func (s *CharacterService) UpdateVoice(projectID, characterID string, voice models.VoiceProfile) (*models.Character, error) {
	character, err := s.GetCharacter(projectID, characterID)
	if err != nil {
		return nil, err
	}

	if !tts.ValidateBounds(tts.SynthesisConfig{
		VoiceID: voice.VoiceID,
		Speed:   voice.Speed,
		Pitch:   voice.Pitch,
		Volume:  voice.Volume,
	}) {
		return nil, apperrors.NewValidationError("声音参数超出合法区间 [0.5, 2.0] 或音色为空", nil)
	}

	if _, err := tts.Create(voice.Engine, config.GetCurrentConfig().TTSCredentials); err != nil {
		return nil, apperrors.NewNotFoundError("TTS引擎不可用: "+voice.Engine, err)
	}

	character.Voice = &voice
	character.UpdatedAt = time.Now()

	if err := s.Repo.SaveCharacter(character); err != nil {
		return nil, apperrors.NewProcessingError("保存角色失败", err)
	}

	return character, nil
}

// DeleteCharacter 删除角色
func (s *CharacterService) DeleteCharacter(projectID, characterID string) error {
	if err := s.Repo.DeleteCharacter(projectID, characterID); err != nil {
		return apperrors.NewNotFoundError("角色不存在: "+characterID, err)
	}

	return nil
}
