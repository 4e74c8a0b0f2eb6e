package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/service"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Stub services embed the interface so only the methods a test exercises need a body.

type stubProductService struct {
	service.ProductService
	input    service.ProductInput
	criteria catalog.Criteria
	uploaded []string
	err      error
}

func (s *stubProductService) Create(ctx context.Context, in service.ProductInput) (*domain.Product, error) {
	s.input = in
	for _, u := range in.MediaFiles {
		body, _ := io.ReadAll(u.Body)
		s.uploaded = append(s.uploaded, u.Filename+":"+string(body))
	}
	if s.err != nil {
		return nil, s.err
	}
	p := &domain.Product{ID: uuid.New(), Slug: "robe-lin"}
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	p.Sizes = in.Sizes
	return p, nil
}

func (s *stubProductService) Update(ctx context.Context, slug string, in service.ProductInput) (*domain.Product, error) {
	s.input = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: uuid.New(), Slug: slug}, nil
}

func (s *stubProductService) List(ctx context.Context, c catalog.Criteria) (catalog.Page[*domain.Product], error) {
	s.criteria = c
	items := []*domain.Product{{ID: uuid.New(), Slug: "robe-lin"}}
	return catalog.NewPage(items, 25, c), s.err
}

func (s *stubProductService) ProductOfTheYear(ctx context.Context) (*domain.Product, error) {
	return nil, s.err
}

type stubOrderService struct {
	service.OrderService
	request   service.OrderRequest
	status    string
	deliverTo []json.RawMessage
	err       error
}

func (s *stubOrderService) Create(ctx context.Context, req service.OrderRequest) (*domain.Order, error) {
	s.request = req
	order, err := service.NormalizeOrder(req)
	if err != nil {
		return nil, err
	}
	order.ID = uuid.New()
	return order, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Order, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: id, Status: domain.OrderStatus(status)}, nil
}

func (s *stubOrderService) SendToDelivery(ctx context.Context, shipments []json.RawMessage) (json.RawMessage, error) {
	s.deliverTo = shipments
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"created":2}`), nil
}

func (s *stubOrderService) Export(ctx context.Context, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := w.Write([]byte("PK-xlsx"))
	return err
}

type stubPixelService struct {
	service.PixelService
	request service.TrackRequest
	client  service.ClientInfo
	result  service.TrackResult
	status  string
	limit   int
}

func (s *stubPixelService) Track(ctx context.Context, req service.TrackRequest, client service.ClientInfo) (service.TrackResult, error) {
	s.request = req
	s.client = client
	return s.result, nil
}

func (s *stubPixelService) ListEvents(ctx context.Context, status string, limit int) ([]*domain.PixelEvent, error) {
	s.status = status
	s.limit = limit
	return nil, nil
}

type stubContentService struct {
	service.ContentService
	files   []storage.StoredFile
	deleted string
	err     error
}

func (s *stubContentService) ListMedia(ctx context.Context) ([]storage.StoredFile, error) {
	return s.files, s.err
}

func (s *stubContentService) DeleteMedia(ctx context.Context, filename string) error {
	s.deleted = filename
	return s.err
}

func (s *stubContentService) CreateSlide(ctx context.Context, in service.SlideInput) (*domain.StorySlide, error) {
	if in.Video == nil {
		return nil, &service.ValidationError{Message: "Video file is required"}
	}
	return &domain.StorySlide{ID: uuid.New(), Title: *in.Title}, nil
}

type stubCategoryService struct {
	service.CategoryService
	sub service.SubInput
}

func (s *stubCategoryService) CreateSub(ctx context.Context, in service.SubInput) (*domain.Sub, error) {
	s.sub = in
	return &domain.Sub{ID: uuid.New(), Name: in.Name, Slug: domain.Slugify(in.Name)}, nil
}

// mount registers a handler's routes under /api the way the server does
func mount(register func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", register)
	return r
}

func passThrough(next http.Handler) http.Handler { return next }

type multipartFile struct {
	field, name, contentType, body string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...multipartFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}
