package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/cache"
	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ShowcaseSize  = 4
	AllCategories = "all"
)

// ProductInput is a parsed create or update body. Nil fields were not sent:
// create falls back to zero values, update keeps the stored value.
type ProductInput struct {
	Title       *string
	Description *string
	Price       *float64
	Promotion   *float64
	Quantity    *int
	Sold        *int
	Category    *string
	Brand       *string
	Sizes       []domain.SizeVariant
	Colors      []domain.ColorVariant
	FicheTech   []domain.TechSpec
	Attributes  map[string]string
	Subs        []uuid.UUID
	// ExistingMediaIDs lists the gallery entries to keep, in their stored order.
	// Nil keeps the whole gallery.
	ExistingMediaIDs []uuid.UUID
	MediaFiles       []storage.Upload
	// ColorFiles[i] illustrates Colors[i]
	ColorFiles []storage.Upload
}

// ProductService defines the catalog operations on products
type ProductService interface {
	Create(ctx context.Context, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, slug string, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, slug string) (*domain.Product, error)
	Get(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, criteria catalog.Criteria) (catalog.Page[*domain.Product], error)
	Search(ctx context.Context, req catalog.SearchRequest) (catalog.Page[*domain.Product], error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	NewArrivals(ctx context.Context, category string) ([]*domain.Product, error)
	BestSellers(ctx context.Context) ([]*domain.Product, error)
	Titles(ctx context.Context) ([]*domain.ProductTitle, error)
	SetProductOfTheYear(ctx context.Context, slug string) (*domain.Product, error)
	ProductOfTheYear(ctx context.Context) (*domain.Product, error)
}

type productService struct {
	repo   repository.ProductRepository
	media  storage.MediaStore
	cache  *cache.CatalogCache
	logger *zap.Logger
}

// NewProductService wires the product operations. catalogCache may be nil.
func NewProductService(
	repo repository.ProductRepository,
	media storage.MediaStore,
	catalogCache *cache.CatalogCache,
	logger *zap.Logger,
) ProductService {
	return &productService{
		repo:   repo,
		media:  media,
		cache:  catalogCache,
		logger: logger,
	}
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if in.Title == nil || plainText(*in.Title) == "" {
		return nil, invalidf("Title is required")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:         uuid.New(),
		Sizes:      in.Sizes,
		FicheTech:  in.FicheTech,
		Attributes: in.Attributes,
		Subs:       in.Subs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyProductFields(product, in)

	product.Slug = domain.Slugify(product.Title)
	if product.Slug == "" {
		return nil, invalidf("Title must contain at least one letter or digit")
	}

	var saved []domain.Media
	cleanup := func() { s.discard(ctx, saved) }

	colors, newFiles, err := s.reconcileColors(ctx, in.Colors, in.ColorFiles, nil)
	saved = append(saved, newFiles...)
	if err != nil {
		cleanup()
		return nil, err
	}
	product.Colors = colors

	uploaded, err := s.saveUploads(ctx, in.MediaFiles)
	saved = append(saved, uploaded...)
	if err != nil {
		cleanup()
		return nil, err
	}
	product.Media = uploaded

	product.EnsureCollections()
	if err := s.repo.Create(ctx, product); err != nil {
		cleanup()
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("slug", product.Slug))
	return product, nil
}

func (s *productService) Update(ctx context.Context, slug string, in ProductInput) (*domain.Product, error) {
	existing, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && plainText(*in.Title) == "" {
		return nil, invalidf("Title cannot be empty")
	}

	updated := *existing
	applyProductFields(&updated, in)
	if in.Title != nil {
		updated.Slug = domain.Slugify(updated.Title)
		if updated.Slug == "" {
			return nil, invalidf("Title must contain at least one letter or digit")
		}
	}
	if in.Sizes != nil {
		updated.Sizes = in.Sizes
	}
	if in.FicheTech != nil {
		updated.FicheTech = in.FicheTech
	}
	if in.Attributes != nil {
		updated.Attributes = in.Attributes
	}
	if in.Subs != nil {
		updated.Subs = in.Subs
	}

	var saved []domain.Media
	if in.Colors != nil {
		colors, newFiles, err := s.reconcileColors(ctx, in.Colors, in.ColorFiles, existing.Colors)
		saved = append(saved, newFiles...)
		if err != nil {
			s.discard(ctx, saved)
			return nil, err
		}
		updated.Colors = colors
	}

	kept, removed := partitionMedia(existing.Media, in.ExistingMediaIDs)
	uploaded, err := s.saveUploads(ctx, in.MediaFiles)
	saved = append(saved, uploaded...)
	if err != nil {
		s.discard(ctx, saved)
		return nil, err
	}
	updated.Media = append(kept, uploaded...)

	updated.EnsureCollections()
	if err := s.repo.Update(ctx, &updated); err != nil {
		s.discard(ctx, saved)
		return nil, err
	}

	// files leave the store only once no record points at them
	s.discard(ctx, removed)

	s.cache.Invalidate(ctx)
	s.logger.Info("Product updated", zap.String("product_id", updated.ID.String()), zap.String("slug", updated.Slug))
	return &updated, nil
}

func (s *productService) Delete(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.repo.DeleteBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("Product deleted", zap.String("product_id", product.ID.String()), zap.String("slug", slug))
	return product, nil
}

func (s *productService) Get(ctx context.Context, slug string) (*domain.Product, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func (s *productService) List(ctx context.Context, criteria catalog.Criteria) (catalog.Page[*domain.Product], error) {
	key := cache.Key("products:list", criteria)
	var page catalog.Page[*domain.Product]
	entry, ok := s.cache.Get(ctx, key, &page)
	if ok {
		return page, nil
	}

	products, total, err := s.repo.List(ctx, criteria)
	if err != nil {
		return page, err
	}
	page = catalog.NewPage(products, total, criteria)
	s.cache.Set(ctx, entry, page)
	return page, nil
}

func (s *productService) Search(ctx context.Context, req catalog.SearchRequest) (catalog.Page[*domain.Product], error) {
	pageNum, size := catalog.Pagination(req.Page, req.ItemsPerPage)
	criteria := catalog.Criteria{Page: pageNum, PageSize: size}
	query := strings.TrimSpace(req.Query)

	key := cache.Key("products:search", query, pageNum, size)
	var page catalog.Page[*domain.Product]
	entry, ok := s.cache.Get(ctx, key, &page)
	if ok {
		return page, nil
	}

	products, total, err := s.repo.Search(ctx, query, pageNum, size)
	if err != nil {
		return page, err
	}
	page = catalog.NewPage(products, total, criteria)
	s.cache.Set(ctx, entry, page)
	return page, nil
}

func (s *productService) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, invalidf("Category is required")
	}
	return s.cachedList(ctx, cache.Key("products:category", strings.ToLower(category)), func() ([]*domain.Product, error) {
		return s.repo.ListByCategory(ctx, category)
	})
}

func (s *productService) NewArrivals(ctx context.Context, category string) ([]*domain.Product, error) {
	if strings.EqualFold(category, AllCategories) {
		category = ""
	}
	return s.cachedList(ctx, cache.Key("products:new-arrivals", category), func() ([]*domain.Product, error) {
		return s.repo.NewArrivals(ctx, category, ShowcaseSize)
	})
}

func (s *productService) BestSellers(ctx context.Context) ([]*domain.Product, error) {
	return s.cachedList(ctx, "products:best-sellers", func() ([]*domain.Product, error) {
		return s.repo.BestSellers(ctx, ShowcaseSize)
	})
}

func (s *productService) Titles(ctx context.Context) ([]*domain.ProductTitle, error) {
	var titles []*domain.ProductTitle
	entry, ok := s.cache.Get(ctx, "products:titles", &titles)
	if ok {
		return titles, nil
	}
	titles, err := s.repo.Titles(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, entry, titles)
	return titles, nil
}

func (s *productService) SetProductOfTheYear(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.repo.SetProductOfTheYear(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("Product of the year set", zap.String("slug", slug))
	return product, nil
}

func (s *productService) ProductOfTheYear(ctx context.Context) (*domain.Product, error) {
	return s.repo.ProductOfTheYear(ctx)
}

func (s *productService) cachedList(ctx context.Context, key string, load func() ([]*domain.Product, error)) ([]*domain.Product, error) {
	var products []*domain.Product
	entry, ok := s.cache.Get(ctx, key, &products)
	if ok {
		return products, nil
	}
	products, err := load()
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*domain.Product{}
	}
	s.cache.Set(ctx, entry, products)
	return products, nil
}

// applyProductFields copies the scalar fields that were sent
func applyProductFields(p *domain.Product, in ProductInput) {
	if in.Title != nil {
		p.Title = plainText(*in.Title)
	}
	if in.Description != nil {
		p.Description = richText(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Promotion != nil {
		p.Promotion = *in.Promotion
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if in.Sold != nil {
		p.Sold = *in.Sold
	}
	if in.Category != nil {
		p.Category = plainText(*in.Category)
	}
	if in.Brand != nil {
		p.Brand = plainText(*in.Brand)
	}
}

// reconcileColors gives colors[i] the i-th uploaded file. Without a file, a
// colour that already existed keeps its stored picture.
func (s *productService) reconcileColors(
	ctx context.Context,
	colors []domain.ColorVariant,
	files []storage.Upload,
	previous []domain.ColorVariant,
) ([]domain.ColorVariant, []domain.Media, error) {
	known := make(map[uuid.UUID]string, len(previous))
	for _, c := range previous {
		known[c.ID] = c.Src
	}

	out := make([]domain.ColorVariant, len(colors))
	var saved []domain.Media
	for i, c := range colors {
		c.Value = plainText(c.Value)
		if i < len(files) {
			m, err := s.media.Save(ctx, files[i])
			if err != nil {
				return nil, saved, fmt.Errorf("failed to store colour picture: %w", err)
			}
			saved = append(saved, m)
			c.Src = m.Src
		} else if src, ok := known[c.ID]; ok && c.ID != uuid.Nil {
			c.Src = src
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		out[i] = c
	}
	return out, saved, nil
}

func (s *productService) saveUploads(ctx context.Context, uploads []storage.Upload) ([]domain.Media, error) {
	media := make([]domain.Media, 0, len(uploads))
	for _, u := range uploads {
		m, err := s.media.Save(ctx, u)
		if err != nil {
			if errors.Is(err, storage.ErrEmptyUpload) {
				return media, invalidf("uploaded file has no name")
			}
			return media, fmt.Errorf("failed to store media: %w", err)
		}
		media = append(media, m)
	}
	return media, nil
}

// discard deletes files one after the other; failures are logged and ignored
func (s *productService) discard(ctx context.Context, media []domain.Media) {
	for _, m := range media {
		if m.Src == "" {
			continue
		}
		if err := s.media.Delete(ctx, m.Src); err != nil {
			s.logger.Warn("Failed to delete media file", zap.String("src", m.Src), zap.Error(err))
		}
	}
}

// partitionMedia splits a gallery into the entries listed in keep, in gallery
// order, and the rest. A nil keep list keeps everything.
func partitionMedia(gallery []domain.Media, keep []uuid.UUID) (kept, removed []domain.Media) {
	kept = []domain.Media{}
	if keep == nil {
		return append(kept, gallery...), nil
	}

	wanted := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}
	for _, m := range gallery {
		if wanted[m.ID] {
			kept = append(kept, m)
		} else {
			removed = append(removed, m)
		}
	}
	return kept, removed
}
