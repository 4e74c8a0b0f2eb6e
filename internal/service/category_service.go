package service

import (
	"context"
	"time"

	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryInput is the body of a category write
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SubInput is the body of a subcategory write. Parent is required on create only.
type SubInput struct {
	Name   string `validate:"required,max=100"`
	Parent *uuid.UUID
}

// CategoryService defines the taxonomy operations
type CategoryService interface {
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, slug string) (*domain.Category, []*domain.Product, error)
	UpdateCategory(ctx context.Context, slug string, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CategorySubs(ctx context.Context, categoryID uuid.UUID) ([]*domain.Sub, error)

	CreateSub(ctx context.Context, in SubInput) (*domain.Sub, error)
	ListSubs(ctx context.Context, parentID *uuid.UUID) ([]*domain.Sub, error)
	GetSub(ctx context.Context, slug string) (*domain.Sub, []*domain.Product, error)
	UpdateSub(ctx context.Context, slug string, in SubInput) (*domain.Sub, error)
	DeleteSub(ctx context.Context, id uuid.UUID) (*domain.Sub, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	subs       repository.SubRepository
	products   repository.ProductRepository
	logger     *zap.Logger
}

func NewCategoryService(
	categories repository.CategoryRepository,
	subs repository.SubRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
) CategoryService {
	return &categoryService{
		categories: categories,
		subs:       subs,
		products:   products,
		logger:     logger,
	}
}

func namedSlug(name string) (string, string, error) {
	name = plainText(name)
	slug := domain.Slugify(name)
	if name == "" || slug == "" {
		return "", "", invalidf("name must contain at least one letter or digit")
	}
	return name, slug, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	name, slug, err := namedSlug(in.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	category := &domain.Category{ID: uuid.New(), Name: name, Slug: slug, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info("Category created", zap.String("slug", slug))
	return category, nil
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *categoryService) GetCategory(ctx context.Context, slug string) (*domain.Category, []*domain.Product, error) {
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	products, err := s.products.ListByCategory(ctx, category.Name)
	if err != nil {
		return nil, nil, err
	}
	return category, products, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, slug string, in CategoryInput) (*domain.Category, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	category.Name, category.Slug, err = namedSlug(in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := s.categories.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Category deleted", zap.String("slug", category.Slug))
	return category, nil
}

func (s *categoryService) CategorySubs(ctx context.Context, categoryID uuid.UUID) ([]*domain.Sub, error) {
	return s.subs.List(ctx, &categoryID)
}

func (s *categoryService) CreateSub(ctx context.Context, in SubInput) (*domain.Sub, error) {
	if in.Parent == nil || *in.Parent == uuid.Nil {
		return nil, invalidf("Sub name and parent category are required")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	name, slug, err := namedSlug(in.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &domain.Sub{ID: uuid.New(), Name: name, Slug: slug, ParentID: *in.Parent, CreatedAt: now, UpdatedAt: now}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	// read back for the populated parent
	return s.subs.FindBySlug(ctx, slug)
}

func (s *categoryService) ListSubs(ctx context.Context, parentID *uuid.UUID) ([]*domain.Sub, error) {
	return s.subs.List(ctx, parentID)
}

func (s *categoryService) GetSub(ctx context.Context, slug string) (*domain.Sub, []*domain.Product, error) {
	sub, err := s.subs.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	products, err := s.products.ListBySub(ctx, sub.ID)
	if err != nil {
		return nil, nil, err
	}
	return sub, products, nil
}

func (s *categoryService) UpdateSub(ctx context.Context, slug string, in SubInput) (*domain.Sub, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	sub, err := s.subs.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	sub.Name, sub.Slug, err = namedSlug(in.Name)
	if err != nil {
		return nil, err
	}
	if in.Parent != nil && *in.Parent != uuid.Nil {
		sub.ParentID = *in.Parent
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, err
	}
	return s.subs.FindBySlug(ctx, sub.Slug)
}

func (s *categoryService) DeleteSub(ctx context.Context, id uuid.UUID) (*domain.Sub, error) {
	sub, err := s.subs.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sub deleted", zap.String("slug", sub.Slug))
	return sub, nil
}
