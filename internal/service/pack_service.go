package service

import (
	"context"
	"time"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPacksPerPage = 10

// PackInput is a parsed pack body; nil fields were not sent
type PackInput struct {
	Title       *string
	Description *string
	Category    *string
	Price       *float64
	ProductIDs  []uuid.UUID
	MediaFiles  []storage.Upload
}

// PackCategoryRequest is the body of a by-category pack listing
type PackCategoryRequest struct {
	Category     string           `json:"category"`
	Page         catalog.LooseInt `json:"page"`
	ItemsPerPage catalog.LooseInt `json:"itemsPerPage"`
	Sort         string           `json:"sort"`
}

// PackPage is one page of packs of a category
type PackPage struct {
	Packs      []*domain.Pack `json:"packs"`
	TotalPacks int            `json:"totalPacks"`
	TotalPages int            `json:"totalPages"`
}

// PackService defines the operations on product bundles
type PackService interface {
	Create(ctx context.Context, in PackInput) (*domain.Pack, error)
	Update(ctx context.Context, slug string, in PackInput) (*domain.Pack, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, slug string) (*domain.Pack, error)
	List(ctx context.Context) ([]*domain.Pack, error)
	ListByCategory(ctx context.Context, req PackCategoryRequest) (*PackPage, error)
}

type packService struct {
	repo   repository.PackRepository
	media  storage.MediaStore
	logger *zap.Logger
}

func NewPackService(repo repository.PackRepository, media storage.MediaStore, logger *zap.Logger) PackService {
	return &packService{repo: repo, media: media, logger: logger}
}

func (s *packService) Create(ctx context.Context, in PackInput) (*domain.Pack, error) {
	if in.Title == nil || plainText(*in.Title) == "" || in.Price == nil || *in.Price == 0 || len(in.ProductIDs) == 0 {
		return nil, invalidf("Missing required fields")
	}

	now := time.Now().UTC()
	pack := &domain.Pack{
		ID:         uuid.New(),
		Title:      plainText(*in.Title),
		Price:      *in.Price,
		ProductIDs: in.ProductIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Description != nil {
		pack.Description = richText(*in.Description)
	}
	if in.Category != nil {
		pack.Category = plainText(*in.Category)
	}
	pack.Slug = domain.Slugify(pack.Title)
	if pack.Slug == "" {
		return nil, invalidf("title must contain at least one letter or digit")
	}

	media, err := s.saveUploads(ctx, in.MediaFiles)
	if err != nil {
		return nil, err
	}
	pack.Media = media

	if err := s.repo.Create(ctx, pack); err != nil {
		s.discard(ctx, media)
		return nil, err
	}

	s.logger.Info("Pack created", zap.String("pack_id", pack.ID.String()), zap.String("slug", pack.Slug))
	// read back so products come populated in list order
	return s.repo.FindBySlug(ctx, pack.Slug)
}

func (s *packService) Update(ctx context.Context, slug string, in PackInput) (*domain.Pack, error) {
	pack, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := plainText(*in.Title)
		if title == "" {
			return nil, invalidf("title cannot be empty")
		}
		newSlug := domain.Slugify(title)
		if newSlug == "" {
			return nil, invalidf("title must contain at least one letter or digit")
		}
		pack.Title = title
		pack.Slug = newSlug
	}
	if in.Description != nil {
		pack.Description = richText(*in.Description)
	}
	if in.Category != nil {
		pack.Category = plainText(*in.Category)
	}
	if in.Price != nil {
		pack.Price = *in.Price
	}
	if in.ProductIDs != nil {
		pack.ProductIDs = in.ProductIDs
	}

	media, err := s.saveUploads(ctx, in.MediaFiles)
	if err != nil {
		return nil, err
	}
	pack.Media = append(pack.Media, media...)

	if err := s.repo.Update(ctx, pack); err != nil {
		s.discard(ctx, media)
		return nil, err
	}

	s.logger.Info("Pack updated", zap.String("pack_id", pack.ID.String()))
	return s.repo.FindBySlug(ctx, pack.Slug)
}

func (s *packService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Pack deleted", zap.String("pack_id", id.String()))
	return nil
}

func (s *packService) Get(ctx context.Context, slug string) (*domain.Pack, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func (s *packService) List(ctx context.Context) ([]*domain.Pack, error) {
	return s.repo.List(ctx)
}

func (s *packService) ListByCategory(ctx context.Context, req PackCategoryRequest) (*PackPage, error) {
	page := 0
	if req.Page.Valid && req.Page.Value > 0 {
		page = req.Page.Value
	}
	size := DefaultPacksPerPage
	if req.ItemsPerPage.Valid && req.ItemsPerPage.Value > 0 {
		size = req.ItemsPerPage.Value
	}
	sort := catalog.ResolveFieldSort(req.Sort)

	packs, total, err := s.repo.ListByCategory(ctx, req.Category, page, size, sort)
	if err != nil {
		return nil, err
	}
	if packs == nil {
		packs = []*domain.Pack{}
	}
	return &PackPage{Packs: packs, TotalPacks: total, TotalPages: catalog.TotalPages(total, size)}, nil
}

func (s *packService) saveUploads(ctx context.Context, uploads []storage.Upload) ([]domain.Media, error) {
	media := make([]domain.Media, 0, len(uploads))
	for _, u := range uploads {
		m, err := s.media.Save(ctx, u)
		if err != nil {
			s.discard(ctx, media)
			return nil, err
		}
		media = append(media, m)
	}
	return media, nil
}

func (s *packService) discard(ctx context.Context, media []domain.Media) {
	for _, m := range media {
		if err := s.media.Delete(ctx, m.Src); err != nil {
			s.logger.Warn("Failed to delete media file", zap.String("src", m.Src), zap.Error(err))
		}
	}
}
