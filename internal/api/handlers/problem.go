// Package handlers implements the HTTP surface for the Upload and
// Import engines: request binding, RFC 7807 error responses, and
// translation between wire shapes and the engine layer's own types.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anvil-lab/catalogue/internal/models"
)

// Problem is an RFC 7807 problem-details body.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const contentTypeProblemJSON = "application/problem+json"

func writeProblem(c *gin.Context, status int, title, detail string) {
	c.Header("Content-Type", contentTypeProblemJSON)
	c.AbortWithStatusJSON(status, Problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

// writeEngineError maps the engine layer's sentinel error taxonomy onto
// HTTP status codes and an RFC 7807 body.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeProblem(c, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeProblem(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, models.ErrChecksumMismatch):
		writeProblem(c, http.StatusUnprocessableEntity, "Checksum Mismatch", err.Error())
	case errors.Is(err, models.ErrStateConflict):
		writeProblem(c, http.StatusConflict, "State Conflict", err.Error())
	default:
		writeProblem(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}
