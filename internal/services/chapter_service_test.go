// internal/services/chapter_service_test.go
package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

const sampleNovel = `第一章 初见

那是一个春天的午后。

第二章 重逢

多年以后他们再次相遇。`

func TestImportTextSplitsChapters(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.Projects.CreateProject("长篇小说", "")
	require.NoError(t, err)

	chapters, err := env.Chapters.ImportText(project.ID, sampleNovel)
	require.NoError(t, err)
	require.Len(t, chapters, 2)

	assert.Equal(t, "第一章 初见", chapters[0].Title)
	assert.Equal(t, "第二章 重逢", chapters[1].Title)

	for i, chapter := range chapters {
		assert.Equal(t, i, chapter.OrderIndex)
		assert.Equal(t, models.ChapterStatusPending, chapter.Status)
		assert.Positive(t, chapter.WordCount)
	}

	// 项目统计随导入更新
	refreshed, err := env.Projects.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.ChaptersCount)
}

func TestImportTextAppendsAfterExistingChapters(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.Projects.CreateProject("长篇小说", "")
	require.NoError(t, err)

	_, err = env.Chapters.ImportText(project.ID, sampleNovel)
	require.NoError(t, err)

	more, err := env.Chapters.ImportText(project.ID, "第三章 告别\n\n故事结束了。")
	require.NoError(t, err)
	require.Len(t, more, 1)

	// 追加导入的章节顺序接在已有章节之后
	assert.Equal(t, 2, more[0].OrderIndex)

	all, err := env.Chapters.ListChapters(project.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, chapter := range all {
		assert.Equal(t, i, chapter.OrderIndex)
	}
}

func TestImportTextWithoutHeadingsFallsBackToSingleChapter(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.Projects.CreateProject("短篇", "")
	require.NoError(t, err)

	chapters, err := env.Chapters.ImportText(project.ID, "没有任何章节标题的一段文字。")
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, "正文", chapters[0].Title)
}

func TestImportTextEmptyRejected(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.Projects.CreateProject("空项目", "")
	require.NoError(t, err)

	_, err = env.Chapters.ImportText(project.ID, "   \n\t ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestUpdateChapterContentClearsDialogues(t *testing.T) {
	env := newTestEnv(t)
	project, chapter := seedChapter(t, env, "张三说：“你好。”")

	dialogues, err := env.Dialogues.ParseChapter(project.ID, chapter.ID)
	require.NoError(t, err)
	require.NotEmpty(t, dialogues)

	updated, err := env.Chapters.UpdateChapter(project.ID, chapter.ID, "", "完全不同的内容。")
	require.NoError(t, err)
	assert.Equal(t, models.ChapterStatusPending, updated.Status)

	// 内容变化后旧的解析结果作废
	remaining, err := env.Dialogues.ListDialogues(project.ID, chapter.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
