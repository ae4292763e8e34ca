// internal/services/services_test.go
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/services"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
	_ "github.com/Voxlit/NovelVoiceStudio/internal/tts/providers/mock"
)

func init() {
	// 总是失败的后端，用于验证批量任务的故障隔离
	tts.Register("broken", func() tts.Provider { return &brokenProvider{} })

	// 可人为阻塞的后端，用于验证批量任务的取消时序
	tts.Register("slow", func() tts.Provider { return &slowProvider{} })
}

type brokenProvider struct{}

func (p *brokenProvider) Initialize(map[string]string) error { return nil }
func (p *brokenProvider) Name() string                       { return "broken" }

func (p *brokenProvider) Synthesize(context.Context, string, tts.SynthesisConfig, string) tts.SynthesisResult {
	return tts.SynthesisResult{Success: false, ErrorMessage: "后端故障"}
}

func (p *brokenProvider) ListVoices(context.Context) ([]models.VoiceInfo, error) { return nil, nil }
func (p *brokenProvider) TestConnection(context.Context) bool                    { return true }
func (p *brokenProvider) ValidateConfig(tts.SynthesisConfig) bool                { return true }

var (
	slowStarted = make(chan struct{}, 8)
	slowRelease = make(chan struct{})
)

type slowProvider struct{}

func (p *slowProvider) Initialize(map[string]string) error { return nil }
func (p *slowProvider) Name() string                       { return "slow" }

// Synthesize 上报开始后阻塞，直到测试关闭 slowRelease 才继续。
// 放行后若上下文已取消则按取消失败返回。
func (p *slowProvider) Synthesize(ctx context.Context, _ string, _ tts.SynthesisConfig, outputPath string) tts.SynthesisResult {
	slowStarted <- struct{}{}
	<-slowRelease

	if ctx.Err() != nil {
		return tts.SynthesisResult{Success: false, ErrorMessage: "合成已取消"}
	}

	return tts.SynthesisResult{Success: true, AudioPath: outputPath, Duration: 1}
}

func (p *slowProvider) ListVoices(context.Context) ([]models.VoiceInfo, error) { return nil, nil }
func (p *slowProvider) TestConnection(context.Context) bool                    { return true }
func (p *slowProvider) ValidateConfig(tts.SynthesisConfig) bool                { return true }

// testEnv 打包全部服务，每个测试用独立的临时数据目录
type testEnv struct {
	Repo       *storage.Repository
	Projects   *services.ProjectService
	Chapters   *services.ChapterService
	Characters *services.CharacterService
	Dialogues  *services.DialogueService
	Audio      *services.AudioService
	Export     *services.ExportService
	Progress   *services.ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_DIR", t.TempDir())
	require.NoError(t, config.InitConfig(dataDir))

	files, err := storage.NewFileStorage(dataDir)
	require.NoError(t, err)
	repo := storage.NewRepository(files)

	locks := services.NewLockManager()
	progress := services.NewProgressService()
	projects := services.NewProjectService(repo)
	chapters := services.NewChapterService(repo, projects)
	characters := services.NewCharacterService(repo)
	dialogues := services.NewDialogueService(repo, chapters, characters, locks)
	audioService := services.NewAudioService(repo, dialogues, characters, chapters, projects, progress, locks)
	export := services.NewExportService(repo, chapters, locks)

	return &testEnv{
		Repo:       repo,
		Projects:   projects,
		Chapters:   chapters,
		Characters: characters,
		Dialogues:  dialogues,
		Audio:      audioService,
		Export:     export,
		Progress:   progress,
	}
}

// seedChapter 创建带章节的项目
func seedChapter(t *testing.T, env *testEnv, content string) (*models.Project, *models.Chapter) {
	t.Helper()

	project, err := env.Projects.CreateProject("测试项目", "")
	require.NoError(t, err)

	now := time.Now()
	chapter := &models.Chapter{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Title:     "第一章",
		Content:   content,
		WordCount: len([]rune(content)),
		Status:    models.ChapterStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, env.Repo.SaveChapter(chapter))

	return project, chapter
}

// addChapter 在项目下追加一个章节
func addChapter(t *testing.T, env *testEnv, projectID string, orderIndex int, content string) *models.Chapter {
	t.Helper()

	now := time.Now()
	chapter := &models.Chapter{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		Title:      "追加章节",
		OrderIndex: orderIndex,
		Content:    content,
		WordCount:  len([]rune(content)),
		Status:     models.ChapterStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, env.Repo.SaveChapter(chapter))

	return chapter
}

// seedDialogue 直接写入一个处于指定状态的段落
func seedDialogue(t *testing.T, env *testEnv, projectID, chapterID string,
	orderIndex int, content string, status models.DialogueStatus) *models.Dialogue {
	t.Helper()

	now := time.Now()
	dialogue := &models.Dialogue{
		ID:         uuid.New().String(),
		ChapterID:  chapterID,
		OrderIndex: orderIndex,
		Type:       models.DialogueTypeNarration,
		Content:    content,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, env.Repo.SaveDialogue(projectID, dialogue))

	return dialogue
}
