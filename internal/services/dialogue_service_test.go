// internal/services/dialogue_service_test.go
package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

func TestParseChapterCreatesDialoguesAndCharacters(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "张三说：“你好。”\n\n天色渐暗。\n\n李四说：“再见。”")

	dialogues, err := env.Dialogues.ParseChapter(project.ID, chapter.ID)
	require.NoError(t, err)
	require.Len(t, dialogues, 3)

	// 段落顺序从0开始连续
	for i, dialogue := range dialogues {
		assert.Equal(t, i, dialogue.OrderIndex)
		assert.Equal(t, models.DialogueStatusPending, dialogue.Status)
	}

	assert.Equal(t, models.DialogueTypeDialogue, dialogues[0].Type)
	assert.Equal(t, "张三", dialogues[0].SpeakerName)
	assert.NotEmpty(t, dialogues[0].CharacterID)

	assert.Equal(t, models.DialogueTypeNarration, dialogues[1].Type)
	assert.Empty(t, dialogues[1].CharacterID)

	// 说话人自动进入角色表，不预设声音配置
	characters, err := env.Characters.ListCharacters(project.ID)
	require.NoError(t, err)
	require.Len(t, characters, 2)

	for _, character := range characters {
		assert.Nil(t, character.Voice)
	}
}

func TestParseChapterReplacesExistingDialogues(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "张三说：“第一次。”")

	first, err := env.Dialogues.ParseChapter(project.ID, chapter.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := env.Dialogues.ParseChapter(project.ID, chapter.ID)
	require.NoError(t, err)
	require.Len(t, second, 1)

	// 重复解析替换旧段落而不是追加
	all, err := env.Dialogues.ListDialogues(project.ID, chapter.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.NotEqual(t, first[0].ID, all[0].ID)
}

func TestTransitionStatusMonotone(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")
	dialogue := seedDialogue(t, env, project.ID, chapter.ID, 0, "文本", models.DialogueStatusPending)

	// pending 不能直接到 completed
	_, err := env.Dialogues.TransitionStatus(project.ID, dialogue.ID, models.DialogueStatusCompleted)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))

	// 正常链路 pending → synthesizing → failed → synthesizing → completed
	for _, next := range []models.DialogueStatus{
		models.DialogueStatusSynthesizing,
		models.DialogueStatusFailed,
		models.DialogueStatusSynthesizing,
		models.DialogueStatusCompleted,
	} {
		_, err := env.Dialogues.TransitionStatus(project.ID, dialogue.ID, next)
		require.NoError(t, err, string(next))
	}

	// completed 是终态，不可被覆盖
	_, err = env.Dialogues.TransitionStatus(project.ID, dialogue.ID, models.DialogueStatusSynthesizing)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestUpdateDialogueContentResetsAudio(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	dialogue := seedDialogue(t, env, project.ID, chapter.ID, 0, "旧文本", models.DialogueStatusCompleted)
	dialogue.AudioPath = "/tmp/old.wav"
	dialogue.Duration = 5
	require.NoError(t, env.Repo.SaveDialogue(project.ID, dialogue))

	updated, err := env.Dialogues.UpdateDialogue(project.ID, dialogue.ID, "新文本", "")
	require.NoError(t, err)

	// 文本变化后旧音频作废
	assert.Equal(t, "新文本", updated.Content)
	assert.Equal(t, models.DialogueStatusPending, updated.Status)
	assert.Empty(t, updated.AudioPath)
	assert.Zero(t, updated.Duration)
}
