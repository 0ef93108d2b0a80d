package dto

import (
	"github.com/gin-gonic/gin"

	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/errors"
)

// ErrorResponse is the wire shape of every error the service returns.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// SendSuccess writes data as the JSON response body.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// SendError maps err to its HTTP status and structured body. Unclassified
// errors render as internal_error without leaking internals.
func SendError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	if appErr == nil {
		appErr = errors.ErrInternal
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: c.GetString(string(constants.ContextKeyRequestID)),
	})
}
