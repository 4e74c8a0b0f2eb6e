package transport

import (
	"net/http"

	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PackHandler handles HTTP requests for product bundles
type PackHandler struct {
	packService  service.PackService
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewPackHandler(packService service.PackService, maxBodyBytes int64, logger *zap.Logger) *PackHandler {
	return &PackHandler{
		packService:  packService,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// RegisterRoutes registers all pack routes
func (h *PackHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pack/create", h.Create)
	r.Get("/packs", h.List)
	r.Post("/pack/category", h.ListByCategory)
	r.Get("/pack/{slug}", h.Get)
	r.Put("/pack/{slug}", h.Update)
	r.Delete("/pack/{id}", h.Delete)
}

func (h *PackHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := packInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pack, err := h.packService.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Pack created successfully",
		"pack":    pack,
	})
}

func (h *PackHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := packInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pack, err := h.packService.Update(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Pack updated successfully",
		"pack":    pack,
	})
}

func (h *PackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.packService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Pack deleted successfully"})
}

func (h *PackHandler) Get(w http.ResponseWriter, r *http.Request) {
	pack, err := h.packService.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, pack)
}

func (h *PackHandler) List(w http.ResponseWriter, r *http.Request) {
	packs, err := h.packService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(packs))
}

// ListByCategory pages through the packs of one category
func (h *PackHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	var req service.PackCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	page, err := h.packService.ListByCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func packInput(f *form) (service.PackInput, error) {
	in := service.PackInput{
		Title:       f.text("title"),
		Description: f.text("description"),
		Category:    f.text("category"),
	}

	var err error
	if in.Price, err = f.number("price"); err != nil {
		return in, err
	}
	if in.ProductIDs, err = f.uuids("products"); err != nil {
		return in, err
	}
	if in.MediaFiles, err = f.uploads("mediaFiles"); err != nil {
		return in, err
	}
	return in, nil
}
