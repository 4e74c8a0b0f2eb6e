package clients

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sofiene-feki/skands-server/internal/config"
)

// DeliveryRelay hands shipments over to the logistics partner
type DeliveryRelay interface {
	BulkCreate(ctx context.Context, shipments []json.RawMessage) (json.RawMessage, error)
}

// DeliveryClient calls the partner's bulk-create endpoint
type DeliveryClient struct {
	url        string
	token      string
	httpClient *http.Client
}

func NewDeliveryClient(cfg config.DeliveryConfig) *DeliveryClient {
	return &DeliveryClient{
		url:        cfg.APIURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// BulkCreate forwards shipments as they were received
func (c *DeliveryClient) BulkCreate(ctx context.Context, shipments []json.RawMessage) (json.RawMessage, error) {
	body, err := doJSON(ctx, c.httpClient, "delivery", http.MethodPost, c.url, c.token, shipments)
	if err != nil {
		return nil, err
	}
	return rawJSON(body), nil
}
