package handler

import (
	"errors"
	"log"
	"net/http"

	"purchaseboard/internal/repository"
	"purchaseboard/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError translates a service error into the wire contract: the
// sentinel picks the status code, the wrapped message becomes the body.
// Anything outside the taxonomy is a 500 with a generic body; the real
// error goes to the log, not the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, response.Error(err.Error()))
	case errors.Is(err, repository.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(err.Error()))
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(err.Error()))
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, response.Error("Internal server error."))
	}
}
