package transport

import (
	"net/http"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContentHandler handles HTTP requests for banners, story slides and the media library
type ContentHandler struct {
	contentService service.ContentService
	maxBodyBytes   int64
	logger         *zap.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(contentService service.ContentService, maxBodyBytes int64, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers the banner, slide and media routes
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create/banner", h.CreateBanner)
	r.Get("/banners", h.ListBanners)
	r.Get("/banner/{id}", h.GetBanner)
	r.Put("/update/banner/{id}", h.UpdateBanner)
	r.Delete("/remove/banner/{id}", h.DeleteBanner)

	r.Post("/story-slide/create", h.CreateSlide)
	r.Get("/story-slides", h.ListSlides)
	r.Get("/story-slide/{id}", h.GetSlide)
	r.Put("/story-slide/{id}", h.UpdateSlide)
	r.Delete("/story-slide/{id}", h.DeleteSlide)

	r.Get("/media", h.ListMedia)
	r.Delete("/media/{filename}", h.DeleteMedia)
}

func (h *ContentHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := bannerInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	banner, err := h.contentService.CreateBanner(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, banner)
}

func (h *ContentHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.contentService.ListBanners(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(banners))
}

func (h *ContentHandler) GetBanner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	banner, err := h.contentService.GetBanner(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banner)
}

func (h *ContentHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := bannerInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	banner, err := h.contentService.UpdateBanner(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banner)
}

func (h *ContentHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.contentService.DeleteBanner(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Banner deleted successfully"})
}

func (h *ContentHandler) CreateSlide(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := slideInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	slide, err := h.contentService.CreateSlide(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, slide)
}

func (h *ContentHandler) ListSlides(w http.ResponseWriter, r *http.Request) {
	slides, err := h.contentService.ListSlides(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(slides))
}

func (h *ContentHandler) GetSlide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	slide, err := h.contentService.GetSlide(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, slide)
}

func (h *ContentHandler) UpdateSlide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := slideInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	slide, err := h.contentService.UpdateSlide(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, slide)
}

func (h *ContentHandler) DeleteSlide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := h.contentService.DeleteSlide(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Slide deleted successfully"})
}

// ListMedia returns the URL of every stored file. Store-relative URLs are
// made absolute against the request host.
func (h *ContentHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	files, err := h.contentService.ListMedia(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	base := requestOrigin(r)
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasPrefix(f.URL, "/") {
			urls = append(urls, base+f.URL)
			continue
		}
		urls = append(urls, f.URL)
	}
	middleware.RespondWithJSON(w, http.StatusOK, urls)
}

func (h *ContentHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if strings.TrimSpace(filename) == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "Filename is required")
		return
	}
	if err := h.contentService.DeleteMedia(r.Context(), filename); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message":  "File deleted successfully",
		"filename": filename,
	})
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func bannerInput(f *form) (service.BannerInput, error) {
	in := service.BannerInput{
		Title:   f.text("title"),
		Link:    f.text("link"),
		Preview: f.text("preview"),
	}
	var err error
	in.File, err = f.upload("file")
	return in, err
}

func slideInput(f *form) (service.SlideInput, error) {
	in := service.SlideInput{
		Title:       f.text("title"),
		Description: f.text("description"),
		CTA:         f.text("cta"),
		Link:        f.text("link"),
	}
	var err error
	in.Video, err = f.upload("video")
	return in, err
}
