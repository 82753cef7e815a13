package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/account-policy/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ListResponse wraps a bounded list of records
type ListResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
	Limit int         `json:"limit"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps err to a status. Only AppError messages reach the
// client; anything else is reported as an internal error.
func RespondWithError(c *gin.Context, err error) {
	status := errors.CodeOf(err).HTTPStatus()
	message := "internal server error"

	if appErr, ok := errors.AsAppError(err); ok && status < http.StatusInternalServerError {
		message = appErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Message: message,
		},
	})
}

// RespondWithValidationError reports field-level binding failures
func RespondWithValidationError(c *gin.Context, err error, details interface{}) {
	_ = c.Error(errors.BadRequest("validation failed", err))
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:    http.StatusBadRequest,
			Message: "validation failed",
			Details: details,
		},
	})
}

// RespondWithList sends a list response
func RespondWithList(c *gin.Context, items interface{}, count, limit int) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ListResponse{
			Items: items,
			Count: count,
			Limit: limit,
		},
	})
}
