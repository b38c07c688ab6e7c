package handlers

import (
	"errors"
	"net/http"

	"pitstop/models"

	"github.com/gin-gonic/gin"
)

// writeWorkflowError maps the workflow error taxonomy onto HTTP statuses.
// The message always names the violated precondition, so it is passed
// through verbatim for support triage.
func writeWorkflowError(c *gin.Context, err error) {
	var we *models.WorkflowError
	if !errors.As(err, &we) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch we.Code {
	case models.ErrCodeValidation:
		status = http.StatusBadRequest
	case models.ErrCodePreconditionFailed:
		status = http.StatusUnprocessableEntity
	case models.ErrCodeIllegalTransition, models.ErrCodeTerminalState:
		status = http.StatusConflict
	case models.ErrCodeExternalDependency:
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"error":     we.Message,
		"code":      we.Code,
		"retryable": we.Retryable(),
	})
}
