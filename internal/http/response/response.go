package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Status  int     `json:"status"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

// New builds an envelope; an empty message is rendered as null.
func New(status int, message string, data any) Envelope {
	env := Envelope{Status: status, Data: data}
	if message != "" {
		env.Message = &message
	}
	return env
}

// JSON writes an envelope with the given status.
func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, New(status, message, data))
}

// OK writes a 200 envelope carrying data.
func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, "", data)
}

// Error writes a failure envelope with a null data field.
func Error(c *gin.Context, status int, message string) {
	JSON(c, status, message, nil)
}

// Abort writes a failure envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, New(status, message, nil))
}
