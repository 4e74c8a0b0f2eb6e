package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/clients"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/metrics"
	"github.com/sofiene-feki/skands-server/internal/repository"

	"go.uber.org/zap"
)

const (
	actionSourceWebsite = "website"
	unknownCategory     = "Unknown"
	defaultEventsLimit  = 100
	maxEventsLimit      = 500
	persistTimeout      = 5 * time.Second
)

// TrackCustomer is the shopper identity sent by the storefront
type TrackCustomer struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// TrackProduct is one cart line of a tracked interaction. Both "_id" and "id" are accepted.
type TrackProduct struct {
	MongoID  string             `json:"_id"`
	ID       string             `json:"id"`
	Quantity catalog.LooseInt   `json:"quantity"`
	Price    catalog.LooseFloat `json:"price"`
	Category string             `json:"category"`
}

// TrackRequest is the body of POST /api/pixel/track
type TrackRequest struct {
	EventName      string             `json:"event_name"`
	Customer       TrackCustomer      `json:"customer"`
	Products       []TrackProduct     `json:"products"`
	Total          catalog.LooseFloat `json:"total"`
	EventID        string             `json:"event_id"`
	EventSourceURL string             `json:"event_source_url"`
}

// ClientInfo is what the transport knows about the caller
type ClientInfo struct {
	ForwardedFor string
	RemoteAddr   string
	UserAgent    string
	Referer      string
}

// TrackResult tells whether the event reached the ad platform or was kept for inspection
type TrackResult struct {
	Sent     bool
	Response json.RawMessage
}

// PixelService relays storefront interactions to the conversions API
type PixelService interface {
	Track(ctx context.Context, req TrackRequest, client ClientInfo) (TrackResult, error)
	ListEvents(ctx context.Context, status string, limit int) ([]*domain.PixelEvent, error)
}

type pixelService struct {
	sender   clients.ConversionSender
	locator  clients.Locator
	events   repository.PixelEventRepository
	metrics  *metrics.Metrics
	currency string
	logger   *zap.Logger
}

func NewPixelService(
	sender clients.ConversionSender,
	locator clients.Locator,
	events repository.PixelEventRepository,
	m *metrics.Metrics,
	currency string,
	logger *zap.Logger,
) PixelService {
	return &pixelService{
		sender:   sender,
		locator:  locator,
		events:   events,
		metrics:  m,
		currency: currency,
		logger:   logger,
	}
}

func (s *pixelService) Track(ctx context.Context, req TrackRequest, client ClientInfo) (TrackResult, error) {
	event := s.buildEvent(ctx, req, client)

	resp, err := s.sender.Send(ctx, event)
	if err == nil {
		s.metrics.PixelEvent(metrics.PixelSent)
		return TrackResult{Sent: true, Response: resp}, nil
	}

	s.logger.Warn("Conversion event relay failed",
		zap.String("event_name", event.EventName),
		zap.String("event_id", event.EventID),
		zap.Error(err),
	)
	// the record is kept even when the relay failed because the caller went away
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if perr := s.events.Create(persistCtx, domain.NewFailedPixelEvent(event, err.Error())); perr != nil {
		s.metrics.PixelEvent(metrics.PixelPersistFailed)
		s.logger.Error("Failed to store undelivered conversion event",
			zap.String("event_id", event.EventID),
			zap.Error(perr),
		)
	} else {
		s.metrics.PixelEvent(metrics.PixelQueued)
	}
	return TrackResult{Sent: false}, nil
}

func (s *pixelService) ListEvents(ctx context.Context, status string, limit int) ([]*domain.PixelEvent, error) {
	st := domain.PixelEventStatus(strings.ToLower(strings.TrimSpace(status)))
	switch st {
	case "", domain.PixelEventPending, domain.PixelEventFailed:
	default:
		return nil, invalidf("unknown pixel event status %q", status)
	}
	if limit < 1 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}
	return s.events.List(ctx, st, limit)
}

func (s *pixelService) buildEvent(ctx context.Context, req TrackRequest, client ClientInfo) domain.ConversionEvent {
	ip := ClientIP(client.ForwardedFor, client.RemoteAddr)

	user := domain.UserData{
		ClientIPAddress: ip,
		ClientUserAgent: client.UserAgent,
		Email:           hashIdentity(normalizeEmail(req.Customer.Email)),
		Phone:           hashIdentity(normalizePhone(req.Customer.Phone)),
	}
	first, last := SplitName(req.Customer.FullName)
	user.FirstName = hashIdentity(strings.ToLower(first))
	user.LastName = hashIdentity(strings.ToLower(last))

	if ip != "" && s.locator != nil {
		loc, err := s.locator.Locate(ctx, ip)
		if err != nil {
			s.logger.Debug("Geo lookup skipped", zap.String("ip", ip), zap.Error(err))
		} else {
			user.Country = loc.Country
			user.State = loc.State
			user.City = loc.City
			user.Zip = loc.Zip
		}
	}

	sourceURL := client.Referer
	if sourceURL == "" {
		sourceURL = req.EventSourceURL
	}

	return domain.ConversionEvent{
		EventName:      req.EventName,
		EventTime:      time.Now().Unix(),
		EventID:        strings.TrimSpace(req.EventID),
		EventSourceURL: sourceURL,
		ActionSource:   actionSourceWebsite,
		UserData:       user,
		CustomData: domain.CustomData{
			Currency: s.currency,
			Value:    req.Total.Value,
			Contents: buildContents(req.Products),
		},
	}
}

func buildContents(products []TrackProduct) []domain.Content {
	contents := make([]domain.Content, 0, len(products))
	for _, p := range products {
		id := p.MongoID
		if id == "" {
			id = p.ID
		}
		category := strings.TrimSpace(p.Category)
		if category == "" {
			category = unknownCategory
		}
		contents = append(contents, domain.Content{
			ID:        id,
			Quantity:  quantityOrOne(p.Quantity),
			ItemPrice: p.Price.Value,
			Category:  category,
		})
	}
	return contents
}

// ClientIP returns the first X-Forwarded-For entry, else the host part of the peer address
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(remoteAddr)
}

// SplitName returns the first word and the rest of a full name
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hashIdentity is the lowercase hex SHA-256 of v, or "" so the field is omitted
func hashIdentity(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
