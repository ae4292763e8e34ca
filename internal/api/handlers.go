// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Voxlit/NovelVoiceStudio/internal/config"
	"github.com/Voxlit/NovelVoiceStudio/internal/models"
	"github.com/Voxlit/NovelVoiceStudio/internal/services"
	"github.com/Voxlit/NovelVoiceStudio/internal/tts"
	"github.com/Voxlit/NovelVoiceStudio/internal/utils"
)

// Handler API处理器
type Handler struct {
	ProjectService   *services.ProjectService
	ChapterService   *services.ChapterService
	CharacterService *services.CharacterService
	DialogueService  *services.DialogueService
	AudioService     *services.AudioService
	ExportService    *services.ExportService
	ProgressService  *services.ProgressService

	Response *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	projectService *services.ProjectService,
	chapterService *services.ChapterService,
	characterService *services.CharacterService,
	dialogueService *services.DialogueService,
	audioService *services.AudioService,
	exportService *services.ExportService,
	progressService *services.ProgressService,
) *Handler {
	return &Handler{
		ProjectService:   projectService,
		ChapterService:   chapterService,
		CharacterService: characterService,
		DialogueService:  dialogueService,
		AudioService:     audioService,
		ExportService:    exportService,
		ProgressService:  progressService,
		Response:         NewResponseHelper(),
	}
}

// APIResponse 标准响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ------------------------------------------------
// 项目管理
// ------------------------------------------------

// GetProjects 列出所有项目
func (h *Handler) GetProjects(c *gin.Context) {
	projects, err := h.ProjectService.ListProjects()
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, projects)
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}

	project, err := h.ProjectService.CreateProject(req.Name, req.Description)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Created(c, project, "项目创建成功")
}

// GetProject 获取项目详情
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.ProjectService.GetProject(c.Param("project_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, project)
}

// UpdateProject 更新项目
func (h *Handler) UpdateProject(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}

	project, err := h.ProjectService.UpdateProject(c.Param("project_id"), req.Name, req.Description)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, project, "项目更新成功")
}

// DeleteProject 删除项目
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.ProjectService.DeleteProject(c.Param("project_id")); err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, nil, "项目已删除")
}

// ------------------------------------------------
// 文本导入与章节管理
// ------------------------------------------------

// ImportText 导入小说文本并自动分章
func (h *Handler) ImportText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", "缺少 text 字段")
		return
	}

	chapters, err := h.ChapterService.ImportText(c.Param("project_id"), req.Text)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Created(c, chapters, fmt.Sprintf("导入完成，共 %d 章", len(chapters)))
}

// UploadManuscript 上传书稿文件并自动分章
func (h *Handler) UploadManuscript(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.Response.BadRequest(c, "未找到上传文件")
		return
	}

	// 只接受纯文本书稿
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".txt" && ext != ".md" {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid,
			"不支持的文件类型: "+ext, "仅支持 .txt 和 .md")
		return
	}

	const maxManuscriptSize = 20 << 20 // 20MB
	if fileHeader.Size > maxManuscriptSize {
		h.Response.Error(c, http.StatusBadRequest, ErrorFileInvalid, "文件过大，上限20MB")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorFileUploadFailed, "读取上传文件失败")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorFileUploadFailed, "读取上传文件失败")
		return
	}

	chapters, err := h.ChapterService.ImportText(c.Param("project_id"), string(content))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Created(c, chapters, fmt.Sprintf("上传完成，共 %d 章", len(chapters)))
}

// GetChapters 列出项目章节
func (h *Handler) GetChapters(c *gin.Context) {
	chapters, err := h.ChapterService.ListChapters(c.Param("project_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, chapters)
}

// GetChapter 获取章节详情
func (h *Handler) GetChapter(c *gin.Context) {
	chapter, err := h.ChapterService.GetChapter(c.Param("project_id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, chapter)
}

// UpdateChapter 更新章节
func (h *Handler) UpdateChapter(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}

	chapter, err := h.ChapterService.UpdateChapter(
		c.Param("project_id"), c.Param("chapter_id"), req.Title, req.Content)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, chapter, "章节更新成功")
}

// DeleteChapter 删除章节
func (h *Handler) DeleteChapter(c *gin.Context) {
	if err := h.ChapterService.DeleteChapter(c.Param("project_id"), c.Param("chapter_id")); err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, nil, "章节已删除")
}

// ------------------------------------------------
// 段落解析与管理
// ------------------------------------------------

// ParseChapter 解析章节，提取对话和旁白段落
func (h *Handler) ParseChapter(c *gin.Context) {
	dialogues, err := h.DialogueService.ParseChapter(c.Param("project_id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, dialogues, fmt.Sprintf("解析完成，共 %d 个段落", len(dialogues)))
}

// GetDialogues 列出章节段落
func (h *Handler) GetDialogues(c *gin.Context) {
	dialogues, err := h.DialogueService.ListDialogues(c.Param("project_id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, dialogues)
}

// UpdateDialogue 修改段落文本或说话人
func (h *Handler) UpdateDialogue(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
		Speaker string `json:"speaker"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}

	dialogue, err := h.DialogueService.UpdateDialogue(
		c.Param("project_id"), c.Param("dialogue_id"), req.Content, req.Speaker)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, dialogue, "段落更新成功")
}

// ------------------------------------------------
// 角色与声音配置
// ------------------------------------------------

// GetCharacters 列出项目角色
func (h *Handler) GetCharacters(c *gin.Context) {
	characters, err := h.CharacterService.ListCharacters(c.Param("project_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, characters)
}

// UpdateCharacterVoice 更新角色的声音配置
func (h *Handler) UpdateCharacterVoice(c *gin.Context) {
	var req models.VoiceProfile

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}

	character, err := h.CharacterService.UpdateVoice(
		c.Param("project_id"), c.Param("character_id"), req)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, character, "声音配置更新成功")
}

// DeleteCharacter 删除角色
func (h *Handler) DeleteCharacter(c *gin.Context) {
	if err := h.CharacterService.DeleteCharacter(c.Param("project_id"), c.Param("character_id")); err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, nil, "角色已删除")
}

// ------------------------------------------------
// 语音合成
// ------------------------------------------------

// GetEngines 列出已注册的TTS引擎
func (h *Handler) GetEngines(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"engines": tts.AvailableEngines(),
		"default": config.GetCurrentConfig().TTSEngine,
	})
}

// GetEngineVoices 列出指定引擎的可用音色
func (h *Handler) GetEngineVoices(c *gin.Context) {
	engine := c.Param("engine")

	provider, err := tts.Create(engine, config.GetCurrentConfig().TTSCredentials)
	if err != nil {
		h.Response.Error(c, http.StatusNotFound, ErrorEngineNotFound, err.Error())
		return
	}

	voices, err := provider.ListVoices(c.Request.Context())
	if err != nil {
		h.Response.Error(c, http.StatusBadGateway, ErrorConnectionFailed, "获取音色列表失败", err.Error())
		return
	}

	h.Response.Success(c, voices)
}

// TestEngineConnection 测试TTS引擎连接
func (h *Handler) TestEngineConnection(c *gin.Context) {
	engine := c.Param("engine")

	provider, err := tts.Create(engine, config.GetCurrentConfig().TTSCredentials)
	if err != nil {
		h.Response.Error(c, http.StatusNotFound, ErrorEngineNotFound, err.Error())
		return
	}

	connected := provider.TestConnection(c.Request.Context())
	h.Response.Success(c, gin.H{"engine": engine, "connected": connected})
}

// SynthesizeDialogue 合成单个段落
func (h *Handler) SynthesizeDialogue(c *gin.Context) {
	dialogue, err := h.AudioService.GenerateDialogueAudio(
		c.Request.Context(), c.Param("project_id"), c.Param("dialogue_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	if dialogue.Status == models.DialogueStatusFailed {
		h.Response.Error(c, http.StatusBadGateway, ErrorSynthesisFailed, "段落合成失败")
		return
	}

	h.Response.Success(c, dialogue, "合成完成")
}

// BatchSynthesizeChapter 批量合成章节，返回任务ID供进度订阅
func (h *Handler) BatchSynthesizeChapter(c *gin.Context) {
	taskID, err := h.AudioService.StartBatchGenerate(c.Param("project_id"), c.Param("chapter_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Accepted(c, gin.H{"task_id": taskID}, "批量合成已开始，请订阅进度更新")
}

// BatchSynthesizeDialogues 按给定顺序批量合成指定的段落集合，段落可跨章节
func (h *Handler) BatchSynthesizeDialogues(c *gin.Context) {
	var req struct {
		DialogueIDs []string `json:"dialogue_ids" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", "缺少 dialogue_ids 字段")
		return
	}

	taskID, err := h.AudioService.StartBatchGenerateDialogues(c.Param("project_id"), req.DialogueIDs)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Accepted(c, gin.H{"task_id": taskID}, "批量合成已开始，请订阅进度更新")
}

// CancelTask 取消批量合成任务
func (h *Handler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskID")

	if !h.AudioService.CancelBatch(taskID) {
		h.Response.NotFound(c, "任务")
		return
	}

	h.Response.Success(c, gin.H{"task_id": taskID}, "取消请求已发出")
}

// SubscribeProgress 订阅任务进度的SSE端点
func (h *Handler) SubscribeProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.NotFound(c, "任务")
		return
	}

	// 设置SSE响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")

	clientGone := c.Request.Context().Done()

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	// 心跳保持连接
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"message\":\"连接已建立\"}\n\n")
	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}

			data, _ := json.Marshal(update)
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", string(data))
			c.Writer.Flush()

			// 任务进入终态后结束连接
			if update.Status != "running" {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {}\n\n")
			c.Writer.Flush()
		}
	}
}

// GetDialogueAudio 下载/播放段落音频
func (h *Handler) GetDialogueAudio(c *gin.Context) {
	dialogue, err := h.DialogueService.GetDialogue(c.Param("project_id"), c.Param("dialogue_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	if dialogue.Status != models.DialogueStatusCompleted || dialogue.AudioPath == "" {
		h.Response.Error(c, http.StatusNotFound, ErrorAudioFileNotFound, "段落音频尚未生成")
		return
	}

	if _, err := os.Stat(dialogue.AudioPath); err != nil {
		h.Response.Error(c, http.StatusNotFound, ErrorAudioFileNotFound, "音频文件不存在")
		return
	}

	c.File(dialogue.AudioPath)
}

// DeleteDialogueAudio 删除段落音频，段落回到待生成状态
func (h *Handler) DeleteDialogueAudio(c *gin.Context) {
	if err := h.AudioService.DeleteDialogueAudio(c.Param("project_id"), c.Param("dialogue_id")); err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, nil, "音频已删除")
}

// ------------------------------------------------
// 导出
// ------------------------------------------------

// exportRequest 导出请求参数。
// ChapterIDs 仅对项目级导出有效，为空时导出全部章节。
type exportRequest struct {
	Format     string   `json:"format"`
	Quality    string   `json:"quality"`
	ChapterIDs []string `json:"chapter_ids"`
}

func (req *exportRequest) normalize() {
	if req.Format == "" {
		req.Format = "mp3"
	}
	if req.Quality == "" {
		req.Quality = "high"
	}
}

// ExportChapter 导出单章成品音频
func (h *Handler) ExportChapter(c *gin.Context) {
	var req exportRequest
	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}
	req.normalize()

	export, err := h.ExportService.ExportChapter(
		c.Request.Context(), c.Param("project_id"), c.Param("chapter_id"), req.Format, req.Quality)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	// 没有已完成段落时导出物不存在
	if export == nil {
		h.Response.Error(c, http.StatusNotFound, ErrorExportDataEmpty, "章节没有已合成的段落，无法导出")
		return
	}

	h.Response.Created(c, export, "导出成功")
}

// ExportProject 导出整个项目的成品音频
func (h *Handler) ExportProject(c *gin.Context) {
	var req exportRequest
	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}
	req.normalize()

	export, err := h.ExportService.ExportProject(
		c.Request.Context(), c.Param("project_id"), req.ChapterIDs, req.Format, req.Quality)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	if export == nil {
		h.Response.Error(c, http.StatusNotFound, ErrorExportDataEmpty, "项目没有已合成的段落，无法导出")
		return
	}

	h.Response.Created(c, export, "导出成功")
}

// GetExports 列出项目的导出记录
func (h *Handler) GetExports(c *gin.Context) {
	exports, err := h.ExportService.ListExports(c.Param("project_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, exports)
}

// DownloadExport 下载成品音频
func (h *Handler) DownloadExport(c *gin.Context) {
	export, err := h.ExportService.GetExport(c.Param("project_id"), c.Param("export_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	if _, err := os.Stat(export.FilePath); err != nil {
		h.Response.Error(c, http.StatusNotFound, ErrorAudioFileNotFound, "导出文件不存在")
		return
	}

	c.FileAttachment(export.FilePath, filepath.Base(export.FilePath))
}

// DeleteExport 删除导出记录及其文件
func (h *Handler) DeleteExport(c *gin.Context) {
	if err := h.ExportService.DeleteExport(c.Param("project_id"), c.Param("export_id")); err != nil {
		h.Response.FromAppError(c, err)
		return
	}

	h.Response.Success(c, nil, "导出记录已删除")
}

// ------------------------------------------------
// 设置
// ------------------------------------------------

// GetSettings 获取TTS设置
func (h *Handler) GetSettings(c *gin.Context) {
	appConfig := config.GetCurrentConfig()

	// 凭据不回传
	h.Response.Success(c, gin.H{
		"tts_engine":        appConfig.TTSEngine,
		"narrator_engine":   appConfig.NarratorEngine,
		"narrator_voice_id": appConfig.NarratorVoiceID,
		"max_concurrency":   appConfig.MaxConcurrency,
		"silence_gap_ms":    appConfig.SilenceGapMs,
		"debug_mode":        appConfig.DebugMode,
	})
}

// GetStats 查看合成与导出的运行指标
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, utils.GetMetrics().Export())
}

// SaveSettings 更新默认TTS引擎和凭据
func (h *Handler) SaveSettings(c *gin.Context) {
	var req struct {
		Engine      string            `json:"engine" binding:"required"`
		Credentials map[string]string `json:"credentials"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数")
		return
	}

	// 引擎必须可以成功创建
	if _, err := tts.Create(req.Engine, req.Credentials); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorEngineNotFound, err.Error())
		return
	}

	if err := config.UpdateTTSConfig(req.Engine, req.Credentials); err != nil {
		h.Response.InternalError(c, "保存设置失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{"engine": req.Engine}, "设置已保存")
}
