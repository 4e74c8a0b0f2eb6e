package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/clients"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines the order desk operations
type OrderService interface {
	Create(ctx context.Context, req OrderRequest) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Order, error)
	SendToDelivery(ctx context.Context, shipments []json.RawMessage) (json.RawMessage, error)
	Export(ctx context.Context, w io.Writer) error
}

type orderService struct {
	repo     repository.OrderRepository
	delivery clients.DeliveryRelay
	logger   *zap.Logger
}

func NewOrderService(repo repository.OrderRepository, delivery clients.DeliveryRelay, logger *zap.Logger) OrderService {
	return &orderService{repo: repo, delivery: delivery, logger: logger}
}

func (s *orderService) Create(ctx context.Context, req OrderRequest) (*domain.Order, error) {
	order, err := NormalizeOrder(req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order.ID = uuid.New()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", order.Total),
	)
	return order, nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *orderService) List(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}

func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Order deleted", zap.String("order_id", id.String()))
	return nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Order, error) {
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalidf("unknown order status %q", status)
	}

	order, err := s.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order status updated", zap.String("order_id", id.String()), zap.String("status", string(st)))
	return order, nil
}

func (s *orderService) SendToDelivery(ctx context.Context, shipments []json.RawMessage) (json.RawMessage, error) {
	if len(shipments) == 0 {
		return nil, invalidf("No orders provided")
	}

	resp, err := s.delivery.BulkCreate(ctx, shipments)
	if err != nil {
		s.logger.Error("Failed to send orders to delivery", zap.Error(err), zap.Int("orders", len(shipments)))
		return nil, err
	}
	s.logger.Info("Orders sent to delivery", zap.Int("orders", len(shipments)))
	return resp, nil
}

func (s *orderService) Export(ctx context.Context, w io.Writer) error {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	return WriteOrdersXLSX(w, orders)
}
