package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/clients"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockProductRepository struct {
	products  map[string]*domain.Product
	updateErr error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[string]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if _, exists := m.products[p.Slug]; exists {
		return repository.ErrSlugTaken
	}
	cp := *p
	m.products[p.Slug] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for slug, existing := range m.products {
		if existing.ID == p.ID {
			delete(m.products, slug)
			cp := *p
			m.products[p.Slug] = &cp
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) DeleteBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, ok := m.products[slug]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	delete(m.products, slug)
	return p, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, ok := m.products[slug]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) all() []*domain.Product {
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (m *mockProductRepository) List(ctx context.Context, c catalog.Criteria) ([]*domain.Product, int, error) {
	all := m.all()
	return all, len(all), nil
}

func (m *mockProductRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	var out []*domain.Product
	for _, p := range m.all() {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockProductRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, p := range m.all() {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepository) ListBySub(ctx context.Context, subID uuid.UUID) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, p := range m.all() {
		for _, id := range p.Subs {
			if id == subID {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *mockProductRepository) NewArrivals(ctx context.Context, category string, limit int) ([]*domain.Product, error) {
	return m.all(), nil
}

func (m *mockProductRepository) BestSellers(ctx context.Context, limit int) ([]*domain.Product, error) {
	return m.all(), nil
}

func (m *mockProductRepository) Titles(ctx context.Context) ([]*domain.ProductTitle, error) {
	var out []*domain.ProductTitle
	for _, p := range m.all() {
		out = append(out, &domain.ProductTitle{ID: p.ID, Title: p.Title, Slug: p.Slug})
	}
	return out, nil
}

func (m *mockProductRepository) SetProductOfTheYear(ctx context.Context, slug string) (*domain.Product, error) {
	p, ok := m.products[slug]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	for _, other := range m.products {
		other.IsProductOfTheYear = false
	}
	p.IsProductOfTheYear = true
	return p, nil
}

func (m *mockProductRepository) ProductOfTheYear(ctx context.Context) (*domain.Product, error) {
	for _, p := range m.products {
		if p.IsProductOfTheYear {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

type mockOrderRepository struct {
	orders map[uuid.UUID]*domain.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Status = status
	return o, nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			return repository.ErrSlugTaken
		}
	}
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	if _, ok := m.categories[c.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[c.ID] = c
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return c, nil
}

type mockSubRepository struct {
	categories *mockCategoryRepository
	subs       map[uuid.UUID]*domain.Sub
}

func newMockSubRepository(categories *mockCategoryRepository) *mockSubRepository {
	return &mockSubRepository{categories: categories, subs: make(map[uuid.UUID]*domain.Sub)}
}

func (m *mockSubRepository) Create(ctx context.Context, s *domain.Sub) error {
	if _, ok := m.categories.categories[s.ParentID]; !ok {
		return repository.ErrUnknownReference
	}
	m.subs[s.ID] = s
	return nil
}

func (m *mockSubRepository) populate(s *domain.Sub) *domain.Sub {
	cp := *s
	if c, ok := m.categories.categories[s.ParentID]; ok {
		cp.Parent = &domain.ParentRef{ID: c.ID, Name: c.Name}
	}
	return &cp
}

func (m *mockSubRepository) List(ctx context.Context, parentID *uuid.UUID) ([]*domain.Sub, error) {
	var out []*domain.Sub
	for _, s := range m.subs {
		if parentID == nil || s.ParentID == *parentID {
			out = append(out, m.populate(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSubRepository) FindBySlug(ctx context.Context, slug string) (*domain.Sub, error) {
	for _, s := range m.subs {
		if s.Slug == slug {
			return m.populate(s), nil
		}
	}
	return nil, repository.ErrSubNotFound
}

func (m *mockSubRepository) Update(ctx context.Context, s *domain.Sub) error {
	if _, ok := m.subs[s.ID]; !ok {
		return repository.ErrSubNotFound
	}
	m.subs[s.ID] = s
	return nil
}

func (m *mockSubRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Sub, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, repository.ErrSubNotFound
	}
	delete(m.subs, id)
	return s, nil
}

type mockBannerRepository struct {
	banners map[uuid.UUID]*domain.Banner
}

func newMockBannerRepository() *mockBannerRepository {
	return &mockBannerRepository{banners: make(map[uuid.UUID]*domain.Banner)}
}

func (m *mockBannerRepository) Create(ctx context.Context, b *domain.Banner) error {
	m.banners[b.ID] = b
	return nil
}

func (m *mockBannerRepository) List(ctx context.Context) ([]*domain.Banner, error) {
	out := make([]*domain.Banner, 0, len(m.banners))
	for _, b := range m.banners {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBannerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error) {
	b, ok := m.banners[id]
	if !ok {
		return nil, repository.ErrBannerNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBannerRepository) Update(ctx context.Context, b *domain.Banner) error {
	if _, ok := m.banners[b.ID]; !ok {
		return repository.ErrBannerNotFound
	}
	m.banners[b.ID] = b
	return nil
}

func (m *mockBannerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.banners[id]; !ok {
		return repository.ErrBannerNotFound
	}
	delete(m.banners, id)
	return nil
}

type mockSlideRepository struct {
	slides map[uuid.UUID]*domain.StorySlide
}

func newMockSlideRepository() *mockSlideRepository {
	return &mockSlideRepository{slides: make(map[uuid.UUID]*domain.StorySlide)}
}

func (m *mockSlideRepository) Create(ctx context.Context, s *domain.StorySlide) error {
	m.slides[s.ID] = s
	return nil
}

func (m *mockSlideRepository) List(ctx context.Context) ([]*domain.StorySlide, error) {
	out := make([]*domain.StorySlide, 0, len(m.slides))
	for _, s := range m.slides {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSlideRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.StorySlide, error) {
	s, ok := m.slides[id]
	if !ok {
		return nil, repository.ErrStorySlideNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSlideRepository) Update(ctx context.Context, s *domain.StorySlide) error {
	if _, ok := m.slides[s.ID]; !ok {
		return repository.ErrStorySlideNotFound
	}
	m.slides[s.ID] = s
	return nil
}

func (m *mockSlideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.slides[id]; !ok {
		return repository.ErrStorySlideNotFound
	}
	delete(m.slides, id)
	return nil
}

type mockPixelEventRepository struct {
	events []*domain.PixelEvent
	err    error
}

func (m *mockPixelEventRepository) Create(ctx context.Context, e *domain.PixelEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPixelEventRepository) List(ctx context.Context, status domain.PixelEventStatus, limit int) ([]*domain.PixelEvent, error) {
	var out []*domain.PixelEvent
	for _, e := range m.events {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockPackRepository resolves pack products against a product mock
type mockPackRepository struct {
	packs     map[string]*domain.Pack
	products  *mockProductRepository
	createErr error
}

func newMockPackRepository(products *mockProductRepository) *mockPackRepository {
	return &mockPackRepository{packs: make(map[string]*domain.Pack), products: products}
}

func (m *mockPackRepository) Create(ctx context.Context, p *domain.Pack) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.packs[p.Slug]; exists {
		return repository.ErrSlugTaken
	}
	m.packs[p.Slug] = p
	return nil
}

func (m *mockPackRepository) Update(ctx context.Context, p *domain.Pack) error {
	for slug, existing := range m.packs {
		if existing.ID == p.ID {
			delete(m.packs, slug)
			m.packs[p.Slug] = p
			return nil
		}
	}
	return repository.ErrPackNotFound
}

func (m *mockPackRepository) Delete(ctx context.Context, id uuid.UUID) error {
	for slug, p := range m.packs {
		if p.ID == id {
			delete(m.packs, slug)
			return nil
		}
	}
	return repository.ErrPackNotFound
}

func (m *mockPackRepository) populate(p *domain.Pack) *domain.Pack {
	out := *p
	out.Products = nil
	for _, id := range p.ProductIDs {
		for _, product := range m.products.products {
			if product.ID == id {
				out.Products = append(out.Products, product)
			}
		}
	}
	return &out
}

func (m *mockPackRepository) FindBySlug(ctx context.Context, slug string) (*domain.Pack, error) {
	p, ok := m.packs[slug]
	if !ok {
		return nil, repository.ErrPackNotFound
	}
	return m.populate(p), nil
}

func (m *mockPackRepository) List(ctx context.Context) ([]*domain.Pack, error) {
	out := make([]*domain.Pack, 0, len(m.packs))
	for _, p := range m.packs {
		out = append(out, m.populate(p))
	}
	return out, nil
}

func (m *mockPackRepository) ListByCategory(ctx context.Context, category string, page, pageSize int, sort catalog.Sort) ([]*domain.Pack, int, error) {
	var matched []*domain.Pack
	for _, p := range m.packs {
		if strings.EqualFold(p.Category, category) {
			matched = append(matched, m.populate(p))
		}
	}
	total := len(matched)
	start := page * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// memoryMediaStore keeps uploads in a map keyed by object name
type memoryMediaStore struct {
	files   map[string][]byte
	saveErr error
	seq     int
}

func newMemoryMediaStore() *memoryMediaStore {
	return &memoryMediaStore{files: make(map[string][]byte)}
}

func (m *memoryMediaStore) Save(ctx context.Context, u storage.Upload) (domain.Media, error) {
	if m.saveErr != nil {
		return domain.Media{}, m.saveErr
	}
	if u.Filename == "" {
		return domain.Media{}, storage.ErrEmptyUpload
	}
	body, err := io.ReadAll(u.Body)
	if err != nil {
		return domain.Media{}, err
	}
	m.seq++
	name := fmt.Sprintf("%03d-%s", m.seq, path.Base(u.Filename))
	m.files[name] = body
	return domain.Media{
		ID:   uuid.New(),
		Src:  "/uploads/media/" + name,
		Type: domain.MediaTypeFromMIME(u.ContentType),
		Alt:  path.Base(u.Filename),
	}, nil
}

func (m *memoryMediaStore) Delete(ctx context.Context, src string) error {
	name := path.Base(src)
	if _, ok := m.files[name]; !ok {
		return storage.ErrMediaNotFound
	}
	delete(m.files, name)
	return nil
}

func (m *memoryMediaStore) List(ctx context.Context) ([]storage.StoredFile, error) {
	out := make([]storage.StoredFile, 0, len(m.files))
	for name := range m.files {
		out = append(out, storage.StoredFile{Name: name, URL: "/uploads/media/" + name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryMediaStore) Exists(ctx context.Context, name string) (bool, error) {
	_, ok := m.files[path.Base(name)]
	return ok, nil
}

func (m *memoryMediaStore) has(src string) bool {
	_, ok := m.files[path.Base(src)]
	return ok
}

type fakeSender struct {
	sent []domain.ConversionEvent
	resp json.RawMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, ev domain.ConversionEvent) (json.RawMessage, error) {
	f.sent = append(f.sent, ev)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeLocator struct {
	loc clients.Location
	err error
	ips []string
}

func (f *fakeLocator) Locate(ctx context.Context, ip string) (clients.Location, error) {
	f.ips = append(f.ips, ip)
	return f.loc, f.err
}

type fakeDelivery struct {
	got  []json.RawMessage
	resp json.RawMessage
	err  error
}

func (f *fakeDelivery) BulkCreate(ctx context.Context, shipments []json.RawMessage) (json.RawMessage, error) {
	f.got = shipments
	return f.resp, f.err
}

var errBoom = errors.New("boom")
