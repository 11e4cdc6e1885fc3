package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/vibe-remote/internal/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`              // 业务错误码（0表示成功）
	Message string      `json:"message,omitempty"` // 提示信息
	Data    interface{} `json:"data"`              // 实际数据（可能为空对象 {}）
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, data)
}

// Accepted 请求已受理,结果经事件流异步到达（202）
func Accepted(c *gin.Context, data interface{}) {
	write(c, http.StatusAccepted, data)
}

func write(c *gin.Context, status int, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(status, Response{
		Code: apperrors.Success,
		Data: data,
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, apperrors.ErrBadRequest, message)
}

// HandleError 统一错误处理（使用AppError）
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	details := apperrors.GetDetails(err)
	if details == apperrors.GetMessage(code) {
		details = ""
	}
	ErrorWithCode(c, code, details)
}

// ErrorWithCode 使用错误码的错误响应
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.JSON(apperrors.GetHTTPStatus(code), Response{
		Code:    code,
		Message: apperrors.FormatError(code, details...),
		Data:    struct{}{},
	})
}
