package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/tubefetch/internal/domain"
)

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVideoNotFound), errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVideoUnavailable), errors.Is(err, domain.ErrNoStreams):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrModeNotAvailable),
		errors.Is(err, domain.ErrMergeToolMissing),
		errors.Is(err, domain.ErrJobFinished),
		errors.Is(err, domain.ErrJobNotDeliverable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrArtifactMissing):
		return http.StatusGone
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the user-facing message for err
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": domain.UserMessage(err)})
}
