package bot

import (
	"context"
	"testing"
	"time"

	"callcentre-bot/internal/db"
	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 1}, nil
}

func (f *fakeTelegram) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "callcentre_bot"}
}

// fakeStore records the city scoping the handlers pass down.
type fakeStore struct {
	orders     map[int64]*models.Order
	listCities []string
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	return f.orders[id], nil
}

func (f *fakeStore) ListOrders(_ context.Context, _ []models.Status, cities []string, _ int) ([]models.Order, error) {
	f.listCities = cities
	var out []models.Order
	for _, o := range f.orders {
		for _, c := range cities {
			if o.City == c {
				out = append(out, *o)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListMasterOrders(context.Context, int64, []models.Status, []string, int) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeStore) SearchOrders(_ context.Context, _ string, cities []string, _ int) ([]models.Order, error) {
	f.listCities = cities
	return nil, nil
}

func (f *fakeStore) GetMaster(context.Context, int64) (*models.Master, error) { return nil, nil }

func (f *fakeStore) GetMasterByTgID(context.Context, int64) (*models.Master, error) {
	return nil, nil
}

func (f *fakeStore) ListActiveMasters(context.Context, []string, int, int) ([]models.Master, error) {
	return nil, nil
}

func (f *fakeStore) CountActiveMasters(context.Context, []string) (int, error) { return 0, nil }

func (f *fakeStore) SearchMastersByName(context.Context, string, []string) ([]models.Master, error) {
	return nil, nil
}

func (f *fakeStore) CreateMaster(context.Context, *models.Master) (int64, error) { return 0, nil }

func (f *fakeStore) UpdateMasterStatus(context.Context, int64, string) error { return nil }

func (f *fakeStore) UpdateMasterContacts(context.Context, int64, *int64, *int64) error { return nil }

func (f *fakeStore) GetDirectorByTgID(context.Context, int64) (*models.Director, error) {
	return nil, nil
}

func (f *fakeStore) AddCashEntry(context.Context, *models.CashEntry) (int64, error) { return 0, nil }

func (f *fakeStore) CashBalance(context.Context, string) (float64, error) { return 0, nil }

func (f *fakeStore) CashHistory(context.Context, []string, time.Time, time.Time) ([]models.CashEntry, error) {
	return nil, nil
}

func (f *fakeStore) ReportByCity(context.Context, []string, time.Time, time.Time) ([]db.CityReport, error) {
	return nil, nil
}

func (f *fakeStore) ReportByMasters(context.Context, []string, time.Time, time.Time) ([]db.MasterReport, error) {
	return nil, nil
}

func (f *fakeStore) GetMasterStats(context.Context, int64) (*db.MasterStats, error) {
	return nil, nil
}

func newTestBot(t *testing.T, store storage) (*Bot, *fakeTelegram) {
	t.Helper()
	tg := &fakeTelegram{}
	logger := zerolog.Nop()
	b, err := NewWithTelegramClient(tg, store, nil, notify.New(tg, 100, 100), 10, &logger)
	require.NoError(t, err)
	return b, tg
}

func groupMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 500},
		Chat: &tgbotapi.Chat{ID: -100123, Type: "supergroup"},
	}
}

func privateMessage(userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
	}
}

func TestGroupChatAnswersOnlyID(t *testing.T) {
	b, tg := newTestBot(t, &fakeStore{})

	b.handleMessage(context.Background(), groupMessage("привет"))
	assert.Empty(t, tg.sent, "group chatter must be ignored")

	b.handleMessage(context.Background(), groupMessage("/id"))
	require.Len(t, tg.sent, 1)
	msg := tg.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Contains(t, msg.Text, "-100123")
}

func TestNilTelegramClientRejected(t *testing.T) {
	logger := zerolog.Nop()
	_, err := newBot(nil, nil, nil, nil, 10, &logger)
	require.Error(t, err)
}

func TestOrderButtonsLabels(t *testing.T) {
	orders := []models.Order{
		{ID: 7, City: "Москва", DateMeeting: time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)},
	}
	kb := orderButtons(orders)
	require.Len(t, kb.InlineKeyboard, 1)
	btn := kb.InlineKeyboard[0][0]
	assert.Equal(t, "№7 | Москва | 14.03 12:30", btn.Text)
	assert.Equal(t, "view_7", *btn.CallbackData)
}

func TestDirectorCannotOpenForeignCityOrder(t *testing.T) {
	store := &fakeStore{orders: map[int64]*models.Order{
		9: {ID: 9, City: "Самара", Phone: "+79990000000", Status: models.StatusWaiting},
	}}
	b, tg := newTestBot(t, store)
	dir := &models.Director{ID: 1, Cities: []string{"Москва", "Казань"}}

	b.showOrderCard(context.Background(), 1, 9, dir)

	require.Len(t, tg.sent, 1)
	msg := tg.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "вне ваших городов")
	assert.NotContains(t, msg.Text, "+79990000000", "card data must not leak")
}

func TestNewOrdersListScopedToDirectorCities(t *testing.T) {
	store := &fakeStore{orders: map[int64]*models.Order{
		1: {ID: 1, City: "Москва", Status: models.StatusWaiting,
			DateMeeting: time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)},
		2: {ID: 2, City: "Самара", Status: models.StatusWaiting,
			DateMeeting: time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)},
	}}
	b, tg := newTestBot(t, store)
	dir := &models.Director{ID: 1, Cities: []string{"Москва", "Казань"}}

	b.handleDirectorMessage(context.Background(), privateMessage(111), dir, "🆕 Новые")

	assert.Equal(t, []string{"Москва", "Казань"}, store.listCities)
	require.Len(t, tg.sent, 1)
	sent := tg.sent[0].(tgbotapi.MessageConfig)
	kb, ok := sent.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1, "the foreign-city order must not be listed")
	assert.Equal(t, "view_1", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestDocumentSentThroughDispatcher(t *testing.T) {
	b, tg := newTestBot(t, &fakeStore{})

	b.sendDocument(context.Background(), 5, "report.xlsx", []byte("x"), "отчет")

	require.Len(t, tg.sent, 1)
	doc, ok := tg.sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, int64(5), doc.ChatID)
	assert.Equal(t, "отчет", doc.Caption)
}

func TestCashCityStepReprompts(t *testing.T) {
	b, tg := newTestBot(t, &fakeStore{})
	dir := &models.Director{ID: 1, Name: "Директор", Cities: []string{"Москва", "Казань"}}
	st := b.state.get(111)
	st.Step = stepCashCity
	st.Cash = cashDraft{Type: models.CashExpense}

	b.handleDirectorStep(context.Background(), privateMessage(111), dir, "Москва")

	assert.Equal(t, stepCashCity, b.state.get(111).Step, "pending flow must survive stray text")
	require.Len(t, tg.sent, 1)
	sent := tg.sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, sent.Text, "город")
	kb, ok := sent.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, kb.InlineKeyboard, 2)
}
