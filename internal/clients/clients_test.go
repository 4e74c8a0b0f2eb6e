package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sofiene-feki/skands-server/internal/config"
	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaClient_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string][]map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"events_received":1,"fbtrace_id":"abc"}`))
	}))
	defer srv.Close()

	c := NewMetaClient(config.MetaConfig{APIURL: srv.URL + "/", PixelID: "123", AccessToken: "tok", Timeout: time.Second})
	resp, err := c.Send(context.Background(), domain.ConversionEvent{EventName: "Purchase", ActionSource: "website"})
	require.NoError(t, err)

	assert.Equal(t, "/123/events", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, gotBody["data"], 1)
	assert.Equal(t, "Purchase", gotBody["data"][0]["event_name"])
	assert.JSONEq(t, `{"events_received":1,"fbtrace_id":"abc"}`, string(resp))
}

func TestMetaClient_Non2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	c := NewMetaClient(config.MetaConfig{APIURL: srv.URL, PixelID: "123", Timeout: time.Second})
	_, err := c.Send(context.Background(), domain.ConversionEvent{EventName: "Purchase"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestMetaClient_NotConfigured(t *testing.T) {
	c := NewMetaClient(config.MetaConfig{APIURL: "http://unused"})
	_, err := c.Send(context.Background(), domain.ConversionEvent{})
	assert.ErrorIs(t, err, ErrPixelNotConfigured)
}

func TestGeoClient_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/41.226.11.5", r.URL.Path)
		assert.Equal(t, geoFields, r.URL.Query().Get("fields"))
		w.Write([]byte(`{"status":"success","country":"Tunisia","regionName":"Tunis","city":"Tunis","zip":"1000"}`))
	}))
	defer srv.Close()

	c := NewGeoClient(config.GeoConfig{BaseURL: srv.URL, Timeout: time.Second})
	loc, err := c.Locate(context.Background(), "41.226.11.5")
	require.NoError(t, err)
	assert.Equal(t, Location{Country: "Tunisia", State: "Tunis", City: "Tunis", Zip: "1000"}, loc)
}

func TestGeoClient_FailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer srv.Close()

	c := NewGeoClient(config.GeoConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.Locate(context.Background(), "10.0.0.1")
	assert.EqualError(t, err, "geo lookup failed: private range")
}

func TestGeoClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewGeoClient(config.GeoConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Locate(context.Background(), "1.1.1.1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDeliveryClient_BulkCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dlv", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `[{"Client":{"nom":"Amel"},"Produit":{"prix":42}}]`, string(body))
		w.Write([]byte(`{"status":200,"result":["ok"]}`))
	}))
	defer srv.Close()

	c := NewDeliveryClient(config.DeliveryConfig{APIURL: srv.URL, Token: "dlv", Timeout: time.Second})
	resp, err := c.BulkCreate(context.Background(), []json.RawMessage{
		json.RawMessage(`{"Client":{"nom":"Amel"},"Produit":{"prix":42}}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":200,"result":["ok"]}`, string(resp))
}

func TestRawJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(rawJSON([]byte(`{"a":1}`))))
	assert.Equal(t, `"plain text"`, string(rawJSON([]byte("plain text"))))
	assert.Equal(t, `null`, string(rawJSON(nil)))
}
