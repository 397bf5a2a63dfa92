package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}

// statusFor maps domain and repository errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation),
		errors.Is(err, domainwf.ErrInvalidDecision):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrDuplicateDecision),
		errors.Is(err, domainwf.ErrTerminalState),
		errors.Is(err, domainwf.ErrInvalidState),
		errors.Is(err, domainwf.ErrInvalidTransition),
		errors.Is(err, port.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domainwf.ErrStepNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are logged
// and their details withheld from the client.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		fail(c, status, "internal error")
		return
	}
	fail(c, status, err.Error())
}
