package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BannerInput is a banner write. Nil fields are left untouched on update.
type BannerInput struct {
	Title   *string
	Link    *string
	Preview *string
	File    *storage.Upload
}

// SlideInput is a story slide write. Nil fields are left untouched on update.
type SlideInput struct {
	Title       *string
	Description *string
	CTA         *string
	Link        *string
	Video       *storage.Upload
}

// ContentService manages the home page content and the raw media library
type ContentService interface {
	CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error)
	ListBanners(ctx context.Context) ([]*domain.Banner, error)
	GetBanner(ctx context.Context, id uuid.UUID) (*domain.Banner, error)
	UpdateBanner(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error)
	DeleteBanner(ctx context.Context, id uuid.UUID) error

	CreateSlide(ctx context.Context, in SlideInput) (*domain.StorySlide, error)
	ListSlides(ctx context.Context) ([]*domain.StorySlide, error)
	GetSlide(ctx context.Context, id uuid.UUID) (*domain.StorySlide, error)
	UpdateSlide(ctx context.Context, id uuid.UUID, in SlideInput) (*domain.StorySlide, error)
	DeleteSlide(ctx context.Context, id uuid.UUID) error

	ListMedia(ctx context.Context) ([]storage.StoredFile, error)
	DeleteMedia(ctx context.Context, filename string) error
}

type contentService struct {
	banners repository.BannerRepository
	slides  repository.StorySlideRepository
	media   storage.MediaStore
	logger  *zap.Logger
}

func NewContentService(
	banners repository.BannerRepository,
	slides repository.StorySlideRepository,
	media storage.MediaStore,
	logger *zap.Logger,
) ContentService {
	return &contentService{
		banners: banners,
		slides:  slides,
		media:   media,
		logger:  logger,
	}
}

func (s *contentService) CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	title := plainPtr(in.Title)
	if title == nil || *title == "" {
		return nil, invalidf("Title is required")
	}

	now := time.Now().UTC()
	banner := &domain.Banner{ID: uuid.New(), Title: *title, CreatedAt: now, UpdatedAt: now}
	applyBannerFields(banner, in)

	var saved *domain.Media
	if in.File != nil {
		m, err := s.store(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		saved = &m
		setBannerImage(banner, m)
	}

	if err := s.banners.Create(ctx, banner); err != nil {
		if saved != nil {
			s.remove(ctx, saved.Src)
		}
		return nil, err
	}
	s.logger.Info("Banner created", zap.String("banner_id", banner.ID.String()))
	return banner, nil
}

func (s *contentService) ListBanners(ctx context.Context) ([]*domain.Banner, error) {
	return s.banners.List(ctx)
}

func (s *contentService) GetBanner(ctx context.Context, id uuid.UUID) (*domain.Banner, error) {
	return s.banners.FindByID(ctx, id)
}

func (s *contentService) UpdateBanner(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error) {
	banner, err := s.banners.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if title := plainPtr(in.Title); title != nil {
		if *title == "" {
			return nil, invalidf("Title is required")
		}
		banner.Title = *title
	}
	applyBannerFields(banner, in)

	previous := banner.Img
	var saved *domain.Media
	if in.File != nil {
		m, err := s.store(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		saved = &m
		setBannerImage(banner, m)
	}
	banner.UpdatedAt = time.Now().UTC()

	if err := s.banners.Update(ctx, banner); err != nil {
		if saved != nil {
			s.remove(ctx, saved.Src)
		}
		return nil, err
	}
	if saved != nil && previous != "" && previous != saved.Src {
		s.remove(ctx, previous)
	}
	return banner, nil
}

func (s *contentService) DeleteBanner(ctx context.Context, id uuid.UUID) error {
	banner, err := s.banners.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.banners.Delete(ctx, id); err != nil {
		return err
	}
	if banner.Img != "" {
		s.remove(ctx, banner.Img)
	}
	s.logger.Info("Banner deleted", zap.String("banner_id", id.String()))
	return nil
}

func (s *contentService) CreateSlide(ctx context.Context, in SlideInput) (*domain.StorySlide, error) {
	if in.Video == nil {
		return nil, invalidf("Video file is required")
	}
	title := plainPtr(in.Title)
	if title == nil || *title == "" {
		return nil, invalidf("Title is required")
	}

	now := time.Now().UTC()
	slide := &domain.StorySlide{ID: uuid.New(), Title: *title, CreatedAt: now, UpdatedAt: now}
	applySlideFields(slide, in)

	m, err := s.store(ctx, *in.Video)
	if err != nil {
		return nil, err
	}
	slide.VideoURL = m.Src

	if err := s.slides.Create(ctx, slide); err != nil {
		s.remove(ctx, m.Src)
		return nil, err
	}
	s.logger.Info("Story slide created", zap.String("slide_id", slide.ID.String()))
	return slide, nil
}

func (s *contentService) ListSlides(ctx context.Context) ([]*domain.StorySlide, error) {
	return s.slides.List(ctx)
}

func (s *contentService) GetSlide(ctx context.Context, id uuid.UUID) (*domain.StorySlide, error) {
	return s.slides.FindByID(ctx, id)
}

func (s *contentService) UpdateSlide(ctx context.Context, id uuid.UUID, in SlideInput) (*domain.StorySlide, error) {
	slide, err := s.slides.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if title := plainPtr(in.Title); title != nil {
		if *title == "" {
			return nil, invalidf("Title is required")
		}
		slide.Title = *title
	}
	applySlideFields(slide, in)

	previous := slide.VideoURL
	saved := ""
	if in.Video != nil {
		m, err := s.store(ctx, *in.Video)
		if err != nil {
			return nil, err
		}
		saved = m.Src
		slide.VideoURL = m.Src
	}
	slide.UpdatedAt = time.Now().UTC()

	if err := s.slides.Update(ctx, slide); err != nil {
		if saved != "" {
			s.remove(ctx, saved)
		}
		return nil, err
	}
	if saved != "" && previous != "" && previous != saved {
		s.remove(ctx, previous)
	}
	return slide, nil
}

func (s *contentService) DeleteSlide(ctx context.Context, id uuid.UUID) error {
	slide, err := s.slides.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.slides.Delete(ctx, id); err != nil {
		return err
	}
	if slide.VideoURL != "" {
		s.remove(ctx, slide.VideoURL)
	}
	s.logger.Info("Story slide deleted", zap.String("slide_id", id.String()))
	return nil
}

func (s *contentService) ListMedia(ctx context.Context) ([]storage.StoredFile, error) {
	return s.media.List(ctx)
}

func (s *contentService) DeleteMedia(ctx context.Context, filename string) error {
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return storage.ErrMediaNotFound
	}
	if err := s.media.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.Info("Media file deleted", zap.String("filename", name))
	return nil
}

func (s *contentService) store(ctx context.Context, u storage.Upload) (domain.Media, error) {
	m, err := s.media.Save(ctx, u)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyUpload) {
			return m, invalidf("uploaded file has no name")
		}
		return m, fmt.Errorf("failed to store media: %w", err)
	}
	return m, nil
}

func (s *contentService) remove(ctx context.Context, src string) {
	if err := s.media.Delete(ctx, src); err != nil && !errors.Is(err, storage.ErrMediaNotFound) {
		s.logger.Warn("Failed to delete media file", zap.String("src", src), zap.Error(err))
	}
}

func applyBannerFields(b *domain.Banner, in BannerInput) {
	if in.Link != nil {
		b.Link = strings.TrimSpace(*in.Link)
	}
	if in.Preview != nil {
		b.Preview = strings.TrimSpace(*in.Preview)
	}
}

func setBannerImage(b *domain.Banner, m domain.Media) {
	b.Img = m.Src
	name := path.Base(m.Src)
	b.File = &name
}

func applySlideFields(sl *domain.StorySlide, in SlideInput) {
	if v := plainPtr(in.Description); v != nil {
		sl.Description = *v
	}
	if v := plainPtr(in.CTA); v != nil {
		sl.CTA = *v
	}
	if in.Link != nil {
		sl.Link = strings.TrimSpace(*in.Link)
	}
}
