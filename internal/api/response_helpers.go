// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Voxlit/NovelVoiceStudio/internal/errors"
)

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}

	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "资源创建成功"
	}

	c.JSON(http.StatusCreated, response)
}

// Accepted 任务已受理响应，用于异步批量任务
func (rh *ResponseHelper) Accepted(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}

	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "任务已受理"
	}

	c.JSON(http.StatusAccepted, response)
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}

	if len(details) > 0 {
		apiError.Details = details[0]
	}

	response := &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
	}

	c.JSON(statusCode, response)
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, resource string, details ...string) {
	rh.Error(c, http.StatusNotFound, rh.getResourceNotFoundCode(resource), resource+"不存在", details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// Conflict 409错误响应
func (rh *ResponseHelper) Conflict(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusConflict, ErrorConflict, message, details...)
}

// FromAppError 按应用错误类型映射HTTP状态码
func (rh *ResponseHelper) FromAppError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidationError(err):
		rh.Error(c, http.StatusBadRequest, errorCode(err), err.Error())
	case apperrors.IsNotFoundError(err):
		rh.Error(c, http.StatusNotFound, errorCode(err), err.Error())
	case apperrors.IsConflictError(err):
		rh.Error(c, http.StatusConflict, errorCode(err), err.Error())
	case apperrors.IsSynthesisError(err):
		rh.Error(c, http.StatusBadGateway, errorCode(err), err.Error())
	case apperrors.IsAssemblyError(err):
		rh.Error(c, http.StatusInternalServerError, errorCode(err), err.Error())
	default:
		rh.InternalError(c, err.Error())
	}
}

func errorCode(err error) string {
	var appError *apperrors.AppError
	if errors.As(err, &appError) {
		return appError.Code
	}

	return ErrorInternalError
}

// getResourceNotFoundCode 根据资源类型生成错误代码
func (rh *ResponseHelper) getResourceNotFoundCode(resource string) string {
	switch resource {
	case "项目", "project":
		return ErrorProjectNotFound
	case "章节", "chapter":
		return ErrorChapterNotFound
	case "段落", "dialogue":
		return ErrorDialogueNotFound
	case "角色", "character":
		return ErrorCharacterNotFound
	case "任务", "task":
		return ErrorTaskNotFound
	case "导出记录", "export":
		return ErrorExportNotFound
	default:
		return ErrorNotFound
	}
}
