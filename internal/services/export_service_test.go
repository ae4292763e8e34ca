// internal/services/export_service_test.go
package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voxlit/NovelVoiceStudio/internal/audio"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

// synthesize 用mock引擎生成段落音频，内容7字 → 2秒
func synthesize(t *testing.T, env *testEnv, projectID, dialogueID string) {
	t.Helper()

	result, err := env.Audio.GenerateDialogueAudio(context.Background(), projectID, dialogueID)
	require.NoError(t, err)
	require.Equal(t, models.DialogueStatusCompleted, result.Status)
}

func TestExportChapterAbsentWhenNoCompletedDialogues(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	seedDialogue(t, env, project.ID, chapter.ID, 0, "未生成", models.DialogueStatusPending)

	export, err := env.Export.ExportChapter(context.Background(), project.ID, chapter.ID, "wav", "high")
	require.NoError(t, err)

	// 没有已完成段落时导出物不存在，而不是产生空文件
	assert.Nil(t, export)

	records, err := env.Export.ListExports(project.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExportChapterMergesCompletedInOrder(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	first := seedDialogue(t, env, project.ID, chapter.ID, 0, "一二三四五六七", models.DialogueStatusPending)
	middle := seedDialogue(t, env, project.ID, chapter.ID, 1, "中间的未完成", models.DialogueStatusPending)
	last := seedDialogue(t, env, project.ID, chapter.ID, 2, "一二三四五六七", models.DialogueStatusPending)

	synthesize(t, env, project.ID, first.ID)
	synthesize(t, env, project.ID, last.ID)

	export, err := env.Export.ExportChapter(context.Background(), project.ID, chapter.ID, "wav", "high")
	require.NoError(t, err)
	require.NotNil(t, export)

	// 两段2秒 + 中间一个500ms间隔 = 4.5秒，未完成的段落不参与拼接
	duration, err := audio.DurationSeconds(export.FilePath)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, duration, 0.01)

	assert.Greater(t, export.FileSize, int64(0))
	assert.Equal(t, chapter.ID, export.ChapterID)
	assert.Equal(t, []string{chapter.ID}, export.Range.ChapterIDs)

	// 成品按章节确定命名，重复导出覆盖同一文件
	assert.Equal(t, "chapter_"+chapter.ID+".wav", filepath.Base(export.FilePath))

	// 段落在成品中的起止时间回填
	firstSaved, err := env.Repo.GetDialogue(project.ID, first.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, firstSaved.StartTime, 0.001)
	assert.InDelta(t, 2.0, firstSaved.EndTime, 0.001)

	lastSaved, err := env.Repo.GetDialogue(project.ID, last.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, lastSaved.StartTime, 0.001)
	assert.InDelta(t, 4.5, lastSaved.EndTime, 0.001)

	middleSaved, err := env.Repo.GetDialogue(project.ID, middle.ID)
	require.NoError(t, err)
	assert.Zero(t, middleSaved.StartTime)
	assert.Zero(t, middleSaved.EndTime)
}

func TestExportChapterRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	_, err := env.Export.ExportChapter(context.Background(), project.ID, chapter.ID, "flac", "high")
	require.Error(t, err)
}

func TestExportProjectSpansChapters(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	dialogue := seedDialogue(t, env, project.ID, chapter.ID, 0, "一二三四五六七", models.DialogueStatusPending)
	synthesize(t, env, project.ID, dialogue.ID)

	export, err := env.Export.ExportProject(context.Background(), project.ID, nil, "wav", "medium")
	require.NoError(t, err)
	require.NotNil(t, export)

	assert.Empty(t, export.ChapterID) // 项目级导出不绑定单章
	assert.Equal(t, []string{chapter.ID}, export.Range.ChapterIDs)
	assert.Equal(t, "project_"+project.ID+".wav", filepath.Base(export.FilePath))

	duration, err := audio.DurationSeconds(export.FilePath)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, duration, 0.01)
}

func TestExportProjectChapterSubset(t *testing.T) {
	env := newTestEnv(t)
	project, chapter1 := seedChapter(t, env, "正文")
	chapter2 := addChapter(t, env, project.ID, 1, "续篇")

	first := seedDialogue(t, env, project.ID, chapter1.ID, 0, "一二三四五六七", models.DialogueStatusPending)
	second := seedDialogue(t, env, project.ID, chapter2.ID, 0, "一二三四五六七", models.DialogueStatusPending)
	synthesize(t, env, project.ID, first.ID)
	synthesize(t, env, project.ID, second.ID)

	export, err := env.Export.ExportProject(context.Background(), project.ID,
		[]string{chapter2.ID}, "wav", "high")
	require.NoError(t, err)
	require.NotNil(t, export)

	// 只拼接选中章节的段落
	assert.Equal(t, []string{chapter2.ID}, export.Range.ChapterIDs)

	duration, err := audio.DurationSeconds(export.FilePath)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, duration, 0.01)
}

func TestExportFailureLeavesNoArtifacts(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	dialogue := seedDialogue(t, env, project.ID, chapter.ID, 0, "一二三四五六七", models.DialogueStatusPending)
	synthesize(t, env, project.ID, dialogue.ID)

	// 人为破坏段落音频路径，拼接必然失败
	saved, err := env.Repo.GetDialogue(project.ID, dialogue.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(saved.AudioPath))

	export, err := env.Export.ExportChapter(context.Background(), project.ID, chapter.ID, "wav", "high")
	require.Error(t, err)
	assert.Nil(t, export)

	records, listErr := env.Export.ListExports(project.ID)
	require.NoError(t, listErr)
	assert.Empty(t, records)
}

func TestDeleteExportRemovesFileAndRecord(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "正文")

	dialogue := seedDialogue(t, env, project.ID, chapter.ID, 0, "一二三四五六七", models.DialogueStatusPending)
	synthesize(t, env, project.ID, dialogue.ID)

	export, err := env.Export.ExportChapter(context.Background(), project.ID, chapter.ID, "wav", "high")
	require.NoError(t, err)
	require.NotNil(t, export)

	require.NoError(t, env.Export.DeleteExport(project.ID, export.ID))

	_, statErr := os.Stat(export.FilePath)
	assert.True(t, os.IsNotExist(statErr))

	_, err = env.Export.GetExport(project.ID, export.ID)
	assert.Error(t, err)
}
