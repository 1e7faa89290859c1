package handler

import (
	"errors"
	"net/http"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/workflow"
	"almoxarifado-api/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError maps the lifecycle error taxonomy onto HTTP status codes.
// Every error keeps its message so the actor can decide the next step
// (refresh, resubmit, contact the approver).
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, authz.ErrLimitExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, response.Error(status, err.Error()))
}
