package transport

import (
	"net/http"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateSubRequest is the storefront admin's sub create body: {"sub":{"sub":name,"parent":id}}
type CreateSubRequest struct {
	Sub struct {
		Name   string `json:"sub"`
		Parent string `json:"parent"`
	} `json:"sub"`
}

// UpdateSubRequest represents the sub update payload
type UpdateSubRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

// CategoryHandler handles HTTP requests for categories and subcategories
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers the category and sub routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/category", h.CreateCategory)
	r.Get("/categories", h.ListCategories)
	r.Get("/category/subs/{id}", h.CategorySubs)
	r.Get("/category/{slug}", h.GetCategory)
	r.Put("/category/{slug}", h.UpdateCategory)
	r.Delete("/category/{id}", h.DeleteCategory)

	r.Post("/sub", h.CreateSub)
	r.Get("/subs", h.ListSubs)
	r.Get("/sub/{slug}", h.GetSub)
	r.Put("/sub/{slug}", h.UpdateSub)
	r.Delete("/sub/{id}", h.DeleteSub)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	category, err := h.categoryService.CreateCategory(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(categories))
}

// GetCategory returns a category with the products filed under it
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, products, err := h.categoryService.GetCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"products": nonNil(products),
	})
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	category, err := h.categoryService.DeleteCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) CategorySubs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	subs, err := h.categoryService.CategorySubs(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(subs))
}

func (h *CategoryHandler) CreateSub(w http.ResponseWriter, r *http.Request) {
	var req CreateSubRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	parent, err := optionalID(req.Sub.Parent, "parent")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	sub, err := h.categoryService.CreateSub(r.Context(), service.SubInput{Name: req.Sub.Name, Parent: parent})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, sub)
}

// ListSubs lists subcategories, optionally those of ?parent=<category id>
func (h *CategoryHandler) ListSubs(w http.ResponseWriter, r *http.Request) {
	parent, err := optionalID(r.URL.Query().Get("parent"), "parent")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	subs, err := h.categoryService.ListSubs(r.Context(), parent)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(subs))
}

func (h *CategoryHandler) GetSub(w http.ResponseWriter, r *http.Request) {
	sub, products, err := h.categoryService.GetSub(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sub":      sub,
		"products": nonNil(products),
	})
}

func (h *CategoryHandler) UpdateSub(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	parent, err := optionalID(req.Parent, "parent")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	sub, err := h.categoryService.UpdateSub(r.Context(), chi.URLParam(r, "slug"), service.SubInput{Name: req.Name, Parent: parent})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *CategoryHandler) DeleteSub(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	sub, err := h.categoryService.DeleteSub(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sub)
}

// optionalID parses an identifier that may be left empty
func optionalID(raw, field string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("invalid " + field)
	}
	return &id, nil
}
