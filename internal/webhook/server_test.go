package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	directors map[string]*models.Director
	calls     int
}

func (f *fakeLookup) GetDirectorByCity(_ context.Context, city string) (*models.Director, error) {
	f.calls++
	return f.directors[city], nil
}

type fakeSender struct {
	sent []string
	to   []int64
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string, _ [][]notify.Button) (int, error) {
	f.to = append(f.to, chatID)
	f.sent = append(f.sent, text)
	return 1, nil
}

type fakeDedupe struct{ seen map[string]bool }

func (f *fakeDedupe) FirstSeen(_ context.Context, key string) bool {
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

func tgID(v int64) *int64 { return &v }

func newTestServer(dedupe Deduper) (*fakeLookup, *fakeSender, *httptest.Server) {
	lookup := &fakeLookup{directors: map[string]*models.Director{
		"Москва": {ID: 1, Name: "Директор", Cities: []string{"Москва"}, TgID: tgID(111)},
	}}
	sender := &fakeSender{}
	srv := New("secret", lookup, sender, dedupe, zerolog.Nop())
	return lookup, sender, httptest.NewServer(srv.Router())
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestOrderUpdateRelaysToDirector(t *testing.T) {
	_, sender, ts := newTestServer(nil)
	defer ts.Close()

	resp := post(t, ts.URL+"/webhook/order-update",
		`{"orderId":55,"newDate":"2026-04-01T15:30:00","city":"Москва","token":"secret"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(111), sender.to[0])
	assert.Contains(t, sender.sent[0], "Заказ №55 перенесен на 01.04.2026 15:30")
}

func TestNewOrderRelaysToDirector(t *testing.T) {
	_, sender, ts := newTestServer(nil)
	defer ts.Close()

	resp := post(t, ts.URL+"/webhook/new-order",
		`{"orderId":56,"city":"Москва","dateMeeting":"2026-04-02T10:00:00","token":"secret"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Новый заказ №56 02.04.2026 10:00")
}

func TestBadTokenRejectedBeforeLookup(t *testing.T) {
	lookup, sender, ts := newTestServer(nil)
	defer ts.Close()

	resp := post(t, ts.URL+"/webhook/order-update",
		`{"orderId":55,"newDate":"2026-04-01T15:30:00","city":"Москва","token":"wrong"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, lookup.calls)
	assert.Empty(t, sender.sent)
}

func TestMissingFields(t *testing.T) {
	_, sender, ts := newTestServer(nil)
	defer ts.Close()

	resp := post(t, ts.URL+"/webhook/new-order", `{"orderId":56,"token":"secret"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, sender.sent)
}

func TestUnknownCityGives404(t *testing.T) {
	_, sender, ts := newTestServer(nil)
	defer ts.Close()

	resp := post(t, ts.URL+"/webhook/order-update",
		`{"orderId":55,"newDate":"2026-04-01T15:30:00","city":"Тула","token":"secret"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, sender.sent)
}

func TestDuplicatePushSwallowed(t *testing.T) {
	_, sender, ts := newTestServer(&fakeDedupe{seen: map[string]bool{}})
	defer ts.Close()

	body := `{"orderId":55,"newDate":"2026-04-01T15:30:00","city":"Москва","token":"secret"}`

	first := post(t, ts.URL+"/webhook/order-update", body)
	first.Body.Close()
	second := post(t, ts.URL+"/webhook/order-update", body)
	second.Body.Close()

	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.Len(t, sender.sent, 1)
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}
