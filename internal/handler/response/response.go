package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wallet-send/pkg/errno"
)

// Response defines the standard JSON structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error 业务错误统一返回 200 + 错误码，工作流错误附带当前会话视图
func Error(c *gin.Context, err error, data ...interface{}) {
	code, msg := errno.Decode(err)
	var payload interface{} = gin.H{}
	if len(data) > 0 && data[0] != nil {
		payload = data[0]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    payload,
	})
}
