package common

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"Image not found"`
}

// MessageResponse 只包含提示信息的成功响应
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Image deleted successfully"`
}

// RespondSuccess 写入成功响应，自动补充 success=true
func RespondSuccess(c *gin.Context, httpStatus int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["success"] = true
	c.JSON(httpStatus, payload)
}

// RespondMessage 写入只有提示信息的成功响应
func RespondMessage(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, MessageResponse{Success: true, Message: message})
}

// RespondError 写入错误响应
func RespondError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorResponse{Success: false, Error: message})
}

// RespondErrorAbort 写入错误响应并中止后续处理
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Success: false, Error: message})
}
