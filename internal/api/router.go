// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	"github.com/Voxlit/NovelVoiceStudio/internal/di"
	"github.com/Voxlit/NovelVoiceStudio/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 只从容器获取服务，不创建新实例
	container := di.GetContainer()

	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("项目服务未正确初始化")
	}

	chapterService, ok := container.Get("chapter").(*services.ChapterService)
	if !ok {
		return nil, fmt.Errorf("章节服务未正确初始化")
	}

	characterService, ok := container.Get("character").(*services.CharacterService)
	if !ok {
		return nil, fmt.Errorf("角色服务未正确初始化")
	}

	dialogueService, ok := container.Get("dialogue").(*services.DialogueService)
	if !ok {
		return nil, fmt.Errorf("段落服务未正确初始化")
	}

	audioService, ok := container.Get("audio").(*services.AudioService)
	if !ok {
		return nil, fmt.Errorf("合成服务未正确初始化")
	}

	exportService, ok := container.Get("export").(*services.ExportService)
	if !ok {
		return nil, fmt.Errorf("导出服务未正确初始化")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	handler := NewHandler(
		projectService,
		chapterService,
		characterService,
		dialogueService,
		audioService,
		exportService,
		progressService,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// HTTPS重定向（生产环境）
	if !cfg.DebugMode {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") != "https" {
				c.Redirect(http.StatusPermanentRedirect,
					"https://"+c.Request.Host+c.Request.URL.Path)
				return
			}
			c.Next()
		})
	}

	// WebSocket 进度订阅
	r.GET("/ws/tasks/:taskID", handler.TaskProgressWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// ===============================
		// TTS引擎相关路由
		// ===============================
		enginesGroup := api.Group("/engines")
		{
			enginesGroup.GET("", handler.GetEngines)
			enginesGroup.GET("/:engine/voices", handler.GetEngineVoices)
			enginesGroup.POST("/:engine/test-connection", handler.TestEngineConnection)
		}

		// ===============================
		// 设置相关路由
		// ===============================
		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.POST("", handler.SaveSettings)
		}

		// ===============================
		// 项目相关路由
		// ===============================
		projectsGroup := api.Group("/projects")
		{
			projectsGroup.GET("", handler.GetProjects)
			projectsGroup.POST("", handler.CreateProject)

			projectGroup := projectsGroup.Group("/:project_id")
			{
				projectGroup.GET("", handler.GetProject)
				projectGroup.PUT("", handler.UpdateProject)
				projectGroup.DELETE("", handler.DeleteProject)

				// 文本导入
				projectGroup.POST("/import", UploadRateLimit(), handler.ImportText)
				projectGroup.POST("/upload", UploadRateLimit(), handler.UploadManuscript)

				// 跨章节的段落集合批量合成
				projectGroup.POST("/synthesize", SynthesisRateLimit(), handler.BatchSynthesizeDialogues)

				// 项目级导出
				projectGroup.POST("/export", handler.ExportProject)
				projectGroup.GET("/exports", handler.GetExports)
				projectGroup.GET("/exports/:export_id/download", handler.DownloadExport)
				projectGroup.DELETE("/exports/:export_id", handler.DeleteExport)

				// 章节相关路由
				chaptersGroup := projectGroup.Group("/chapters")
				{
					chaptersGroup.GET("", handler.GetChapters)
					chaptersGroup.GET("/:chapter_id", handler.GetChapter)
					chaptersGroup.PUT("/:chapter_id", handler.UpdateChapter)
					chaptersGroup.DELETE("/:chapter_id", handler.DeleteChapter)

					chaptersGroup.POST("/:chapter_id/parse", handler.ParseChapter)
					chaptersGroup.GET("/:chapter_id/dialogues", handler.GetDialogues)
					chaptersGroup.POST("/:chapter_id/synthesize", SynthesisRateLimit(), handler.BatchSynthesizeChapter)
					chaptersGroup.POST("/:chapter_id/export", handler.ExportChapter)
				}

				// 段落相关路由
				dialoguesGroup := projectGroup.Group("/dialogues")
				{
					dialoguesGroup.PUT("/:dialogue_id", handler.UpdateDialogue)
					dialoguesGroup.POST("/:dialogue_id/synthesize", handler.SynthesizeDialogue)
					dialoguesGroup.GET("/:dialogue_id/audio", handler.GetDialogueAudio)
					dialoguesGroup.DELETE("/:dialogue_id/audio", handler.DeleteDialogueAudio)
				}

				// 角色相关路由
				charactersGroup := projectGroup.Group("/characters")
				{
					charactersGroup.GET("", handler.GetCharacters)
					charactersGroup.PUT("/:character_id/voice", handler.UpdateCharacterVoice)
					charactersGroup.DELETE("/:character_id", handler.DeleteCharacter)
				}
			}
		}

		// ===============================
		// 任务进度相关
		// ===============================
		api.GET("/progress/:taskID", handler.SubscribeProgress)
		api.POST("/cancel/:taskID", handler.CancelTask)

		// 运行指标
		api.GET("/stats", handler.GetStats)

		// WebSocket 管理路由
		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
