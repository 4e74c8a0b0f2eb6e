package transport

import (
	"errors"
	"io"
	"net/http"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductListResponse is one page of a catalog listing
type ProductListResponse struct {
	Products    []*domain.Product `json:"products"`
	TotalPages  int               `json:"totalPages"`
	Total       int               `json:"total"`
	CurrentPage int               `json:"currentPage"`
}

// ProductHandler handles HTTP requests for catalog products
type ProductHandler struct {
	productService service.ProductService
	maxBodyBytes   int64
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler. maxBodyBytes caps write bodies.
func NewProductHandler(productService service.ProductService, maxBodyBytes int64, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Post("/products", h.List)
	r.Get("/products/category/{category}", h.ListByCategory)
	r.Get("/products/new-arrivals/{filter}", h.NewArrivals)
	r.Get("/products/best-sellers", h.BestSellers)
	r.Post("/products/search", h.Search)
	r.Get("/titles", h.Titles)

	r.Put("/product/specialOffre/{slug}", h.SetProductOfTheYear)
	r.Get("/specialOffre/{slug}", h.Get)
	r.Get("/getProductOfTheYear", h.ProductOfTheYear)

	r.Post("/product/create", h.Create)
	r.Put("/product/update/{slug}", h.Update)
	r.Delete("/product/{slug}", h.Delete)
	r.Get("/product/{slug}", h.Get)
}

// Create handles product creation from a multipart or JSON body
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := productInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	product, err := h.productService.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.String("slug", product.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles partial product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(w, r, h.maxBodyBytes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer f.close()

	in, err := productInput(f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product and returns it
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Delete(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("slug", product.Slug))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Deleted successfully",
		"product": product,
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// List handles filtered, sorted and paginated catalog listings
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	req, err := catalog.ParseListRequest(body)
	if err != nil {
		writeServiceError(w, h.logger, badRequest("invalid request body"))
		return
	}

	page, err := h.productService.List(r.Context(), catalog.Build(req))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products:    page.Items,
		TotalPages:  page.TotalPages,
		Total:       page.Total,
		CurrentPage: page.CurrentPage,
	})
}

// Search handles free-text catalog search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	req, err := catalog.ParseSearchRequest(body)
	if err != nil {
		writeServiceError(w, h.logger, badRequest("invalid request body"))
		return
	}

	page, err := h.productService.Search(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products:    page.Items,
		TotalPages:  page.TotalPages,
		Total:       page.Total,
		CurrentPage: page.CurrentPage,
	})
}

func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": nonNil(products),
		"total":    len(products),
	})
}

// NewArrivals lists the latest products; the filter "all" spans every category
func (h *ProductHandler) NewArrivals(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.NewArrivals(r.Context(), chi.URLParam(r, "filter"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": nonNil(products)})
}

func (h *ProductHandler) BestSellers(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.BestSellers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": nonNil(products)})
}

func (h *ProductHandler) Titles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.productService.Titles(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(titles))
}

// SetProductOfTheYear moves the product-of-the-year pointer to the given product
func (h *ProductHandler) SetProductOfTheYear(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.SetProductOfTheYear(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product of the year set", zap.String("slug", product.Slug))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

func (h *ProductHandler) ProductOfTheYear(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.ProductOfTheYear(r.Context())
	if errors.Is(err, repository.ErrProductNotFound) || (err == nil && product == nil) {
		middleware.RespondWithError(w, http.StatusNotFound, "No product of the year found")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	return io.ReadAll(r.Body)
}

// productInput converts a parsed form into the service input. Numeric and
// JSON fields that cannot be read are rejected here.
func productInput(f *form) (service.ProductInput, error) {
	in := service.ProductInput{
		Title:       f.text("Title"),
		Description: f.text("Description"),
		Category:    f.text("Category"),
		Brand:       f.text("Brand"),
	}

	var err error
	if in.Price, err = f.number("Price"); err != nil {
		return in, err
	}
	if in.Promotion, err = f.number("Promotion"); err != nil {
		return in, err
	}
	if in.Quantity, err = f.integer("Quantity"); err != nil {
		return in, err
	}
	if in.Sold, err = f.integer("sold"); err != nil {
		return in, err
	}
	if in.Sizes, err = f.sizes("sizes"); err != nil {
		return in, err
	}
	if in.Colors, err = f.colors("colors"); err != nil {
		return in, err
	}
	if _, err = f.decode("ficheTech", &in.FicheTech); err != nil {
		return in, err
	}
	if _, err = f.decode("attributes", &in.Attributes); err != nil {
		return in, err
	}
	if in.Subs, err = f.uuids("subs"); err != nil {
		return in, err
	}
	if in.ExistingMediaIDs, err = f.uuids("existingMediaIds"); err != nil {
		return in, err
	}
	if in.MediaFiles, err = f.uploads("mediaFiles"); err != nil {
		return in, err
	}
	if in.ColorFiles, err = f.uploads("colorFiles"); err != nil {
		return in, err
	}
	return in, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
