// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// 项目相关错误
	ErrorProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrorProjectCreateFailed = "PROJECT_CREATE_FAILED"

	// 章节相关错误
	ErrorChapterNotFound  = "CHAPTER_NOT_FOUND"
	ErrorImportFailed     = "IMPORT_FAILED"
	ErrorImportTextEmpty  = "IMPORT_TEXT_EMPTY"
	ErrorParseFailed      = "PARSE_FAILED"
	ErrorDialogueNotFound = "DIALOGUE_NOT_FOUND"

	// 角色相关错误
	ErrorCharacterNotFound  = "CHARACTER_NOT_FOUND"
	ErrorVoiceConfigInvalid = "VOICE_CONFIG_INVALID"

	// TTS相关错误
	ErrorEngineNotFound    = "ENGINE_NOT_FOUND"
	ErrorSynthesisFailed   = "SYNTHESIS_FAILED"
	ErrorConnectionFailed  = "CONNECTION_FAILED"
	ErrorTaskNotFound      = "TASK_NOT_FOUND"
	ErrorAudioFileNotFound = "AUDIO_FILE_NOT_FOUND"

	// 文件相关错误
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"
	ErrorFileInvalid      = "FILE_INVALID"

	// 导出相关错误
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
	ErrorExportDataEmpty     = "EXPORT_DATA_EMPTY"
	ErrorExportNotFound      = "EXPORT_NOT_FOUND"
)
