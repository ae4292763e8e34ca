// internal/storage/repository.go
package storage

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Voxlit/NovelVoiceStudio/internal/models"
)

// Repository 基于 FileStorage 的实体仓库。
// 磁盘布局：
//
//	projects/<projectID>/project.json
//	projects/<projectID>/chapters/<chapterID>.json
//	projects/<projectID>/characters/<characterID>.json
//	projects/<projectID>/dialogues/<dialogueID>.json
//	projects/<projectID>/exports/<exportID>.json
type Repository struct {
	files *FileStorage
}

// NewRepository 创建实体仓库
func NewRepository(files *FileStorage) *Repository {
	return &Repository{files: files}
}

func projectDir(projectID string) string {
	return filepath.Join("projects", projectID)
}

func projectPath(projectID string) string {
	return filepath.Join(projectDir(projectID), "project.json")
}

func chapterPath(projectID, chapterID string) string {
	return filepath.Join(projectDir(projectID), "chapters", chapterID+".json")
}

func characterPath(projectID, characterID string) string {
	return filepath.Join(projectDir(projectID), "characters", characterID+".json")
}

func dialoguePath(projectID, dialogueID string) string {
	return filepath.Join(projectDir(projectID), "dialogues", dialogueID+".json")
}

func exportPath(projectID, exportID string) string {
	return filepath.Join(projectDir(projectID), "exports", exportID+".json")
}

// ---------- 项目 ----------

func (r *Repository) SaveProject(project *models.Project) error {
	return r.files.SaveJSON(projectPath(project.ID), project)
}

func (r *Repository) GetProject(projectID string) (*models.Project, error) {
	var project models.Project
	if err := r.files.LoadJSON(projectPath(projectID), &project); err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *Repository) ListProjects() ([]*models.Project, error) {
	ids, err := r.files.ListDirs("projects")
	if err != nil {
		return nil, err
	}

	projects := make([]*models.Project, 0, len(ids))

	for _, id := range ids {
		project, err := r.GetProject(id)
		if err != nil {
			continue // 跳过损坏或不完整的项目目录
		}

		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})

	return projects, nil
}

// DeleteProject 删除项目及其下所有章节、角色、段落和导出记录
func (r *Repository) DeleteProject(projectID string) error {
	if !r.files.Exists(projectPath(projectID)) {
		return fmt.Errorf("%w: 项目 %s", ErrNotFound, projectID)
	}

	return r.files.DeleteDir(projectDir(projectID))
}

// ---------- 章节 ----------

func (r *Repository) SaveChapter(chapter *models.Chapter) error {
	return r.files.SaveJSON(chapterPath(chapter.ProjectID, chapter.ID), chapter)
}

func (r *Repository) GetChapter(projectID, chapterID string) (*models.Chapter, error) {
	var chapter models.Chapter
	if err := r.files.LoadJSON(chapterPath(projectID, chapterID), &chapter); err != nil {
		return nil, err
	}

	return &chapter, nil
}

// ListChapters 返回项目下的章节，按 OrderIndex 升序
func (r *Repository) ListChapters(projectID string) ([]*models.Chapter, error) {
	ids, err := r.files.ListJSONFiles(filepath.Join(projectDir(projectID), "chapters"))
	if err != nil {
		return nil, err
	}

	chapters := make([]*models.Chapter, 0, len(ids))

	for _, id := range ids {
		chapter, err := r.GetChapter(projectID, id)
		if err != nil {
			return nil, err
		}

		chapters = append(chapters, chapter)
	}

	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].OrderIndex < chapters[j].OrderIndex
	})

	return chapters, nil
}

func (r *Repository) DeleteChapter(projectID, chapterID string) error {
	return r.files.Delete(chapterPath(projectID, chapterID))
}

// ---------- 角色 ----------

func (r *Repository) SaveCharacter(character *models.Character) error {
	return r.files.SaveJSON(characterPath(character.ProjectID, character.ID), character)
}

func (r *Repository) GetCharacter(projectID, characterID string) (*models.Character, error) {
	var character models.Character
	if err := r.files.LoadJSON(characterPath(projectID, characterID), &character); err != nil {
		return nil, err
	}

	return &character, nil
}

// GetCharacterByName 按名称查找角色，未找到返回 ErrNotFound
func (r *Repository) GetCharacterByName(projectID, name string) (*models.Character, error) {
	characters, err := r.ListCharacters(projectID)
	if err != nil {
		return nil, err
	}

	for _, character := range characters {
		if character.Name == name {
			return character, nil
		}
	}

	return nil, fmt.Errorf("%w: 角色 %s", ErrNotFound, name)
}

func (r *Repository) ListCharacters(projectID string) ([]*models.Character, error) {
	ids, err := r.files.ListJSONFiles(filepath.Join(projectDir(projectID), "characters"))
	if err != nil {
		return nil, err
	}

	characters := make([]*models.Character, 0, len(ids))

	for _, id := range ids {
		character, err := r.GetCharacter(projectID, id)
		if err != nil {
			return nil, err
		}

		characters = append(characters, character)
	}

	sort.Slice(characters, func(i, j int) bool {
		return characters[i].Name < characters[j].Name
	})

	return characters, nil
}

func (r *Repository) DeleteCharacter(projectID, characterID string) error {
	return r.files.Delete(characterPath(projectID, characterID))
}

// ---------- 段落 ----------

func (r *Repository) SaveDialogue(projectID string, dialogue *models.Dialogue) error {
	return r.files.SaveJSON(dialoguePath(projectID, dialogue.ID), dialogue)
}

func (r *Repository) GetDialogue(projectID, dialogueID string) (*models.Dialogue, error) {
	var dialogue models.Dialogue
	if err := r.files.LoadJSON(dialoguePath(projectID, dialogueID), &dialogue); err != nil {
		return nil, err
	}

	return &dialogue, nil
}

// ListDialoguesByChapter 返回章节下的段落，按 OrderIndex 升序
func (r *Repository) ListDialoguesByChapter(projectID, chapterID string) ([]*models.Dialogue, error) {
	ids, err := r.files.ListJSONFiles(filepath.Join(projectDir(projectID), "dialogues"))
	if err != nil {
		return nil, err
	}

	var dialogues []*models.Dialogue

	for _, id := range ids {
		dialogue, err := r.GetDialogue(projectID, id)
		if err != nil {
			return nil, err
		}

		if dialogue.ChapterID == chapterID {
			dialogues = append(dialogues, dialogue)
		}
	}

	sort.Slice(dialogues, func(i, j int) bool {
		return dialogues[i].OrderIndex < dialogues[j].OrderIndex
	})

	return dialogues, nil
}

// DeleteDialoguesByChapter 删除章节下的全部段落
func (r *Repository) DeleteDialoguesByChapter(projectID, chapterID string) error {
	dialogues, err := r.ListDialoguesByChapter(projectID, chapterID)
	if err != nil {
		return err
	}

	for _, dialogue := range dialogues {
		if err := r.files.Delete(dialoguePath(projectID, dialogue.ID)); err != nil {
			return err
		}
	}

	return nil
}

// ---------- 导出记录 ----------

func (r *Repository) SaveExport(export *models.AudioExport) error {
	return r.files.SaveJSON(exportPath(export.ProjectID, export.ID), export)
}

func (r *Repository) GetExport(projectID, exportID string) (*models.AudioExport, error) {
	var export models.AudioExport
	if err := r.files.LoadJSON(exportPath(projectID, exportID), &export); err != nil {
		return nil, err
	}

	return &export, nil
}

// ListExports 返回项目的导出记录，按创建时间倒序
func (r *Repository) ListExports(projectID string) ([]*models.AudioExport, error) {
	ids, err := r.files.ListJSONFiles(filepath.Join(projectDir(projectID), "exports"))
	if err != nil {
		return nil, err
	}

	exports := make([]*models.AudioExport, 0, len(ids))

	for _, id := range ids {
		export, err := r.GetExport(projectID, id)
		if err != nil {
			return nil, err
		}

		exports = append(exports, export)
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].CreatedAt.After(exports[j].CreatedAt)
	})

	return exports, nil
}

func (r *Repository) DeleteExport(projectID, exportID string) error {
	return r.files.Delete(exportPath(projectID, exportID))
}
