package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/config"
	"github.com/sofiene-feki/skands-server/internal/domain"
)

var ErrPixelNotConfigured = errors.New("meta pixel is not configured")

// ConversionSender relays conversion events to the ad platform
type ConversionSender interface {
	Send(ctx context.Context, event domain.ConversionEvent) (json.RawMessage, error)
}

// MetaClient posts events to the Conversions API of one pixel
type MetaClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewMetaClient(cfg config.MetaConfig) *MetaClient {
	endpoint := ""
	if cfg.PixelID != "" {
		endpoint = strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.PixelID + "/events"
	}
	return &MetaClient{
		endpoint:   endpoint,
		token:      cfg.AccessToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type metaPayload struct {
	Data []domain.ConversionEvent `json:"data"`
}

// Send delivers event and returns the platform's answer untouched
func (c *MetaClient) Send(ctx context.Context, event domain.ConversionEvent) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, ErrPixelNotConfigured
	}

	body, err := doJSON(ctx, c.httpClient, "meta", http.MethodPost, c.endpoint, c.token,
		metaPayload{Data: []domain.ConversionEvent{event}})
	if err != nil {
		return nil, err
	}
	return rawJSON(body), nil
}
