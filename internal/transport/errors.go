package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/service"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var notFoundMessages = []struct {
	err     error
	message string
}{
	{repository.ErrProductNotFound, "Product not found"},
	{repository.ErrPackNotFound, "Pack not found"},
	{repository.ErrOrderNotFound, "Order not found"},
	{repository.ErrCategoryNotFound, "Category not found"},
	{repository.ErrSubNotFound, "Sub not found"},
	{repository.ErrBannerNotFound, "Banner not found"},
	{repository.ErrStorySlideNotFound, "Slide not found"},
	{storage.ErrMediaNotFound, "File not found"},
}

// writeServiceError maps a service or repository error onto the error envelope
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		logger.Debug("Request rejected", zap.String("reason", verr.Message))
		middleware.RespondWithValidationMessage(w, verr.Message, middleware.FormatValidationErrors(verr.Cause))
		return
	}

	for _, nf := range notFoundMessages {
		if errors.Is(err, nf.err) {
			middleware.RespondWithError(w, http.StatusNotFound, nf.message)
			return
		}
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, repository.ErrUnknownReference):
		middleware.RespondWithError(w, http.StatusBadRequest, "a referenced record does not exist")
	case errors.As(err, &tooLarge):
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		// duplicate slugs land here too, with the store's message
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func badRequest(message string) error {
	return &service.ValidationError{Message: message}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid request body")
	}
	return nil
}

// pathID parses a uuid route parameter
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("invalid id")
	}
	return id, nil
}
