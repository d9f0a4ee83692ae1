package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/atomastery/internal/mastery"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondServiceError maps engine errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mastery.ErrInvalidInput):
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, mastery.ErrTransientFailure):
		c.Header("Retry-After", "1")
		RespondError(c, http.StatusServiceUnavailable, "transient_failure", err)
	case errors.Is(err, mastery.ErrStructureMissing):
		RespondError(c, http.StatusNotFound, "structure_missing", err)
	case errors.Is(err, mastery.ErrPersistence):
		RespondError(c, http.StatusInternalServerError, "persistence_failure", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
