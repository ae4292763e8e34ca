// internal/storage/repository_test.go
package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	files, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	return NewRepository(files)
}

func TestFileStorageSaveLoadDelete(t *testing.T) {
	files, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	type doc struct {
		Name string `json:"name"`
	}

	require.NoError(t, files.SaveJSON("sub/dir/item.json", &doc{Name: "示例"}))
	assert.True(t, files.Exists("sub/dir/item.json"))

	var loaded doc
	require.NoError(t, files.LoadJSON("sub/dir/item.json", &loaded))
	assert.Equal(t, "示例", loaded.Name)

	require.NoError(t, files.Delete("sub/dir/item.json"))
	assert.False(t, files.Exists("sub/dir/item.json"))

	err = files.LoadJSON("sub/dir/item.json", &loaded)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = files.Delete("sub/dir/item.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryChaptersSortedByOrderIndex(t *testing.T) {
	repo := newTestRepo(t)

	for _, idx := range []int{2, 0, 1} {
		require.NoError(t, repo.SaveChapter(&models.Chapter{
			ID:         string(rune('a' + idx)),
			ProjectID:  "p1",
			Title:      "章节",
			OrderIndex: idx,
		}))
	}

	chapters, err := repo.ListChapters("p1")
	require.NoError(t, err)
	require.Len(t, chapters, 3)

	for i, chapter := range chapters {
		assert.Equal(t, i, chapter.OrderIndex)
	}
}

func TestRepositoryDialoguesFilteredByChapter(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveDialogue("p1", &models.Dialogue{ID: "d1", ChapterID: "c1", OrderIndex: 1}))
	require.NoError(t, repo.SaveDialogue("p1", &models.Dialogue{ID: "d2", ChapterID: "c1", OrderIndex: 0}))
	require.NoError(t, repo.SaveDialogue("p1", &models.Dialogue{ID: "d3", ChapterID: "c2", OrderIndex: 0}))

	dialogues, err := repo.ListDialoguesByChapter("p1", "c1")
	require.NoError(t, err)
	require.Len(t, dialogues, 2)
	assert.Equal(t, "d2", dialogues[0].ID)
	assert.Equal(t, "d1", dialogues[1].ID)

	require.NoError(t, repo.DeleteDialoguesByChapter("p1", "c1"))

	dialogues, err = repo.ListDialoguesByChapter("p1", "c1")
	require.NoError(t, err)
	assert.Empty(t, dialogues)

	// 其他章节的段落不受影响
	dialogues, err = repo.ListDialoguesByChapter("p1", "c2")
	require.NoError(t, err)
	assert.Len(t, dialogues, 1)
}

func TestRepositoryCharacterByName(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveCharacter(&models.Character{ID: "ch1", ProjectID: "p1", Name: "张三"}))

	character, err := repo.GetCharacterByName("p1", "张三")
	require.NoError(t, err)
	assert.Equal(t, "ch1", character.ID)

	_, err = repo.GetCharacterByName("p1", "李四")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryDeleteProjectRemovesEverything(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveProject(&models.Project{ID: "p1", Name: "测试项目", CreatedAt: time.Now()}))
	require.NoError(t, repo.SaveChapter(&models.Chapter{ID: "c1", ProjectID: "p1"}))
	require.NoError(t, repo.SaveDialogue("p1", &models.Dialogue{ID: "d1", ChapterID: "c1"}))

	require.NoError(t, repo.DeleteProject("p1"))

	_, err := repo.GetProject("p1")
	assert.True(t, errors.Is(err, ErrNotFound))

	chapters, err := repo.ListChapters("p1")
	require.NoError(t, err)
	assert.Empty(t, chapters)

	// 删除不存在的项目
	err = repo.DeleteProject("p1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRepositoryExportsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Now()

	require.NoError(t, repo.SaveExport(&models.AudioExport{ID: "e1", ProjectID: "p1", CreatedAt: base}))
	require.NoError(t, repo.SaveExport(&models.AudioExport{ID: "e2", ProjectID: "p1", CreatedAt: base.Add(time.Minute)}))

	exports, err := repo.ListExports("p1")
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "e2", exports[0].ID)
}
