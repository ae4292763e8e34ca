// internal/app/app.go
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	"github.com/Voxlit/NovelVoiceStudio/internal/di"
	"github.com/Voxlit/NovelVoiceStudio/internal/services"
	"github.com/Voxlit/NovelVoiceStudio/internal/storage"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"

	// TTS后端在init中向注册表注册
	_ "github.com/Voxlit/NovelVoiceStudio/internal/tts/providers/espeak"
	_ "github.com/Voxlit/NovelVoiceStudio/internal/tts/providers/mock"
)

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	appConfig := config.GetCurrentConfig()

	files, err := storage.NewFileStorage(appConfig.DataDir)
	if err != nil {
		return fmt.Errorf("初始化文件存储失败: %w", err)
	}
	repo := storage.NewRepository(files)

	locks := services.NewLockManager()
	progress := services.NewProgressService()

	projects := services.NewProjectService(repo)
	chapters := services.NewChapterService(repo, projects)
	characters := services.NewCharacterService(repo)
	dialogues := services.NewDialogueService(repo, chapters, characters, locks)
	audio := services.NewAudioService(repo, dialogues, characters, chapters, projects, progress, locks)
	export := services.NewExportService(repo, chapters, locks)

	container := di.GetContainer()
	container.Register("storage", files)
	container.Register("repository", repo)
	container.Register("locks", locks)
	container.Register("progress", progress)
	container.Register("project", projects)
	container.Register("chapter", chapters)
	container.Register("character", characters)
	container.Register("dialogue", dialogues)
	container.Register("audio", audio)
	container.Register("export", export)

	logrus.WithFields(logrus.Fields{
		"engines":        tts.AvailableEngines(),
		"default_engine": appConfig.TTSEngine,
		"services":       len(container.GetNames()),
	}).Info("服务初始化完成")

	return nil
}
