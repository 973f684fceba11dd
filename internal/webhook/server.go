// Package webhook receives CRM push notifications and relays them to the
// director responsible for the order's city.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"callcentre-bot/internal/metrics"
	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DirectorLookup resolves the notification target for a city.
type DirectorLookup interface {
	GetDirectorByCity(ctx context.Context, city string) (*models.Director, error)
}

// Notifier delivers the relayed message.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, buttons [][]notify.Button) (int, error)
}

// Server handles the CRM webhook endpoints.
type Server struct {
	token    string
	store    DirectorLookup
	notifier Notifier
	dedupe   Deduper
	logger   zerolog.Logger
}

// New creates the webhook server. dedupe may be nil.
func New(token string, store DirectorLookup, notifier Notifier, dedupe Deduper, logger zerolog.Logger) *Server {
	return &Server{
		token:    token,
		store:    store,
		notifier: notifier,
		dedupe:   dedupe,
		logger:   logger,
	}
}

// Router builds the chi router with all endpoints mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Post("/webhook/order-update", s.handleOrderUpdate)
	r.Post("/webhook/new-order", s.handleNewOrder)
	r.Get("/health", s.handleHealth)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With().
			Str("request_id", uuid.NewString()).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type orderUpdatePayload struct {
	OrderID int64  `json:"orderId"`
	NewDate string `json:"newDate"`
	City    string `json:"city"`
	Token   string `json:"token"`
}

func (s *Server) handleOrderUpdate(w http.ResponseWriter, r *http.Request) {
	var p orderUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		metrics.IncWebhookRequest("order-update", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{Message: "Invalid JSON"})
		return
	}

	// The token gate comes first so unauthorized probes never touch the
	// database.
	if p.Token != s.token {
		metrics.IncWebhookRequest("order-update", "unauthorized")
		writeJSON(w, http.StatusUnauthorized, response{Message: "Unauthorized"})
		return
	}
	if p.OrderID == 0 || p.City == "" || p.NewDate == "" {
		metrics.IncWebhookRequest("order-update", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{Message: "Missing required fields"})
		return
	}

	text := fmt.Sprintf("📅 Заказ №%d перенесен на %s", p.OrderID, formatEventDate(p.NewDate))
	s.relay(w, r, "order-update", p.OrderID, p.NewDate, p.City, text, "Notification processed")
}

type newOrderPayload struct {
	OrderID     int64  `json:"orderId"`
	City        string `json:"city"`
	DateMeeting string `json:"dateMeeting"`
	Token       string `json:"token"`
}

func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	var p newOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		metrics.IncWebhookRequest("new-order", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{Message: "Invalid JSON"})
		return
	}

	if p.Token != s.token {
		metrics.IncWebhookRequest("new-order", "unauthorized")
		writeJSON(w, http.StatusUnauthorized, response{Message: "Unauthorized"})
		return
	}
	if p.OrderID == 0 || p.City == "" || p.DateMeeting == "" {
		metrics.IncWebhookRequest("new-order", "bad_request")
		writeJSON(w, http.StatusBadRequest, response{Message: "Missing required fields"})
		return
	}

	text := fmt.Sprintf("🆕 Новый заказ №%d %s", p.OrderID, formatEventDate(p.DateMeeting))
	s.relay(w, r, "new-order", p.OrderID, p.DateMeeting, p.City, text, "New order notification processed")
}

func (s *Server) relay(w http.ResponseWriter, r *http.Request, endpoint string, orderID int64, date, city, text, okMessage string) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if s.dedupe != nil {
		key := fmt.Sprintf("%s:%d:%s", endpoint, orderID, date)
		if !s.dedupe.FirstSeen(ctx, key) {
			logger.Info().Int64("order_id", orderID).Msg("duplicate webhook swallowed")
			metrics.IncWebhookRequest(endpoint, "duplicate")
			writeJSON(w, http.StatusOK, response{Success: true, Message: okMessage})
			return
		}
	}

	dir, err := s.store.GetDirectorByCity(ctx, city)
	if err != nil {
		logger.Error().Err(err).Str("city", city).Msg("director lookup failed")
		metrics.IncWebhookRequest(endpoint, "error")
		writeJSON(w, http.StatusInternalServerError, response{Message: "Internal server error"})
		return
	}
	if dir == nil || dir.TgID == nil {
		logger.Warn().Str("city", city).Msg("no director for city")
		metrics.IncWebhookRequest(endpoint, "not_found")
		writeJSON(w, http.StatusNotFound, response{Message: "Director not found"})
		return
	}

	if _, err := s.notifier.Send(ctx, *dir.TgID, text, nil); err != nil {
		logger.Error().Err(err).Int64("order_id", orderID).Msg("relay failed")
		metrics.IncWebhookRequest(endpoint, "error")
		writeJSON(w, http.StatusInternalServerError, response{Message: "Internal server error"})
		return
	}

	logger.Info().Int64("order_id", orderID).Str("city", city).Msg("webhook relayed")
	metrics.IncWebhookRequest(endpoint, "ok")
	writeJSON(w, http.StatusOK, response{Success: true, Message: okMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// formatEventDate renders a CRM timestamp as the operators read it. The CRM
// sends wall-clock time, so no zone conversion happens here.
func formatEventDate(raw string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02.01.2006 15:04")
		}
	}
	return raw
}
