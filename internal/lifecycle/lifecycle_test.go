package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	orders    map[int64]*models.Order
	masters   map[int64]*models.Master
	directors map[string]*models.Director
	cards     map[string]*models.CardRef
	cash      []models.CashEntry
	writes    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    map[int64]*models.Order{},
		masters:   map[int64]*models.Master{},
		directors: map[string]*models.Director{},
		cards:     map[string]*models.CardRef{},
	}
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetMaster(_ context.Context, id int64) (*models.Master, error) {
	m, ok := f.masters[id]
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (f *fakeStore) GetDirectorByCity(_ context.Context, city string) (*models.Director, error) {
	return f.directors[city], nil
}

func (f *fakeStore) SetOrderMaster(_ context.Context, orderID int64, masterID *int64, status models.Status) error {
	f.writes++
	o := f.orders[orderID]
	o.MasterID = masterID
	o.Status = status
	return nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, status models.Status) error {
	f.writes++
	f.orders[orderID].Status = status
	return nil
}

func (f *fakeStore) FinalizeOrder(_ context.Context, order *models.Order, entry *models.CashEntry) error {
	f.writes++
	o := f.orders[order.ID]
	o.Status = order.Status
	if order.Status.Closing() {
		o.Result = order.Result
		o.Expenditure = order.Expenditure
		o.Clean = order.Clean
		o.MasterChange = order.MasterChange
		o.ClosedAt = ptr(time.Now())
	}
	if entry != nil {
		f.cash = append(f.cash, *entry)
	}
	return nil
}

func cardKey(orderID int64, audience string) string {
	return fmt.Sprintf("%d/%s", orderID, audience)
}

func (f *fakeStore) GetCard(_ context.Context, orderID int64, audience string) (*models.CardRef, error) {
	return f.cards[cardKey(orderID, audience)], nil
}

func (f *fakeStore) SaveCard(_ context.Context, ref *models.CardRef) error {
	f.cards[cardKey(ref.OrderID, ref.Audience)] = ref
	return nil
}

func (f *fakeStore) DeleteCard(_ context.Context, orderID int64, audience string) error {
	delete(f.cards, cardKey(orderID, audience))
	return nil
}

type sentMessage struct {
	chatID  int64
	text    string
	buttons [][]notify.Button
}

type fakeNotifier struct {
	sent    []sentMessage
	deleted []int
	nextID  int
	sendErr error
}

func (f *fakeNotifier) Send(_ context.Context, chatID int64, text string, buttons [][]notify.Button) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, buttons: buttons})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) Delete(_ context.Context, _ int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func fixture() (*fakeStore, *fakeNotifier, *Service) {
	store := newFakeStore()
	store.orders[100] = &models.Order{
		ID:          100,
		RK:          "Авито",
		City:        "Москва",
		Phone:       "+79991234567",
		ClientName:  "Иван",
		Address:     "ул. Ленина, 1",
		DateMeeting: time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC),
		Status:      models.StatusWaiting,
	}
	store.masters[7] = &models.Master{
		ID: 7, Name: "Сергей", Cities: []string{"Москва", "Химки"},
		StatusWork: models.MasterStatusActive, ChatID: ptr(int64(707)), TgID: ptr(int64(7007)),
	}
	store.masters[8] = &models.Master{
		ID: 8, Name: "Олег", Cities: []string{"Москва"},
		StatusWork: models.MasterStatusActive, ChatID: ptr(int64(808)), TgID: ptr(int64(8008)),
	}
	store.masters[9] = &models.Master{
		ID: 9, Name: "Пётр", Cities: []string{"Казань"},
		StatusWork: models.MasterStatusActive, ChatID: ptr(int64(909)),
	}
	store.directors["Москва"] = &models.Director{
		ID: 1, Name: "Директор", Cities: []string{"Москва"}, TgID: ptr(int64(111)),
	}
	notifier := &fakeNotifier{}
	return store, notifier, New(store, notifier)
}

func TestAssignMasterOffersOrder(t *testing.T) {
	store, notifier, svc := fixture()

	out, err := svc.AssignMaster(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)

	assert.Equal(t, int64(7), *store.orders[100].MasterID)
	assert.Equal(t, models.StatusWaiting, store.orders[100].Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(707), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "Новая заявка назначена")
	assert.Contains(t, notifier.sent[0].text, "№100")
	require.Len(t, notifier.sent[0].buttons, 2)
	assert.Equal(t, "order_accept_100", notifier.sent[0].buttons[0][0].Data)

	ref := store.cards[cardKey(100, models.AudienceMaster)]
	require.NotNil(t, ref)
	assert.Equal(t, int64(707), ref.ChatID)
}

func TestAssignMasterCityMismatch(t *testing.T) {
	store, notifier, svc := fixture()

	_, err := svc.AssignMaster(context.Background(), 100, 9)
	require.ErrorIs(t, err, ErrNoCityOverlap)
	assert.Zero(t, store.writes)
	assert.Empty(t, notifier.sent)
	assert.Nil(t, store.orders[100].MasterID)
}

func TestAssignMasterInactive(t *testing.T) {
	store, _, svc := fixture()
	store.masters[7].StatusWork = models.MasterStatusFired

	_, err := svc.AssignMaster(context.Background(), 100, 7)
	require.ErrorIs(t, err, ErrMasterInactive)
	assert.Zero(t, store.writes)
}

func TestAssignMasterUnknownOrder(t *testing.T) {
	_, _, svc := fixture()

	_, err := svc.AssignMaster(context.Background(), 999, 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReassignResetsAndNotifiesPrevious(t *testing.T) {
	store, notifier, svc := fixture()

	_, err := svc.AssignMaster(context.Background(), 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), 100, 7)
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, store.orders[100].Status)

	notifier.sent = nil
	out, err := svc.AssignMaster(context.Background(), 100, 8)
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)

	assert.Equal(t, int64(8), *store.orders[100].MasterID)
	assert.Equal(t, models.StatusWaiting, store.orders[100].Status)

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(707), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "передан другому мастеру")
	assert.Equal(t, int64(808), notifier.sent[1].chatID)
	assert.Contains(t, notifier.sent[1].text, "Новая заявка назначена")

	// The previous master's card is gone; the pointer now targets master 8.
	ref := store.cards[cardKey(100, models.AudienceMaster)]
	require.NotNil(t, ref)
	assert.Equal(t, int64(808), ref.ChatID)
	assert.NotEmpty(t, notifier.deleted)
}

func TestAcceptRequiresAssignedMaster(t *testing.T) {
	_, _, svc := fixture()

	_, err := svc.Accept(context.Background(), 100, 7)
	require.ErrorIs(t, err, ErrNotAssigned)
}

func TestAcceptWrongMaster(t *testing.T) {
	_, _, svc := fixture()

	_, err := svc.AssignMaster(context.Background(), 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), 100, 8)
	require.ErrorIs(t, err, ErrNotAssigned)
}

func TestRejectReturnsOrderToPool(t *testing.T) {
	store, notifier, svc := fixture()

	_, err := svc.AssignMaster(context.Background(), 100, 7)
	require.NoError(t, err)

	notifier.sent = nil
	out, err := svc.Reject(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)

	assert.Nil(t, store.orders[100].MasterID)
	assert.Equal(t, models.StatusWaiting, store.orders[100].Status)
	assert.Nil(t, store.cards[cardKey(100, models.AudienceMaster)])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(111), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "отклонил заказ №100")
}

func TestRejectAfterEnRouteRefused(t *testing.T) {
	_, _, svc := fixture()
	ctx := context.Background()

	_, err := svc.AssignMaster(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, 100, 7)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceFollowsChain(t *testing.T) {
	store, notifier, svc := fixture()
	ctx := context.Background()

	_, err := svc.AssignMaster(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, 100, 7)
	require.NoError(t, err)

	// No skipping Accepted -> InProgress.
	_, err = svc.Advance(ctx, 100, 7, models.StatusInProgress)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.NoError(t, err)
	out, err := svc.Advance(ctx, 100, 7, models.StatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, store.orders[100].Status)
	assert.Equal(t, models.StatusInProgress, out.Order.Status)

	last := notifier.sent[len(notifier.sent)-1]
	require.Len(t, last.buttons, 4)
	assert.Equal(t, "order_ready_100", last.buttons[0][0].Data)
}

func TestFinalizeDoneSettlement(t *testing.T) {
	store, _, svc := fixture()
	ctx := context.Background()

	_, err := svc.AssignMaster(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusInProgress)
	require.NoError(t, err)

	out, err := svc.Finalize(ctx, 100, 7, models.StatusDone, &Financials{Gross: 10000, Expenditure: 1000})
	require.NoError(t, err)

	o := store.orders[100]
	assert.Equal(t, models.StatusDone, o.Status)
	assert.Equal(t, 10000.0, *o.Result)
	assert.Equal(t, 1000.0, *o.Expenditure)
	assert.Equal(t, 9000.0, *o.Clean)
	assert.Equal(t, 4500.0, *o.MasterChange)
	assert.NotNil(t, o.ClosedAt)

	require.Len(t, store.cash, 1)
	entry := store.cash[0]
	assert.Equal(t, models.CashIncome, entry.Type)
	assert.Equal(t, 4500.0, entry.Amount)
	assert.Equal(t, "Москва", entry.City)
	assert.Equal(t, "Заказ №100", entry.PaymentPurpose)
	assert.Equal(t, "Система Бот", entry.CreatedBy)
	assert.Contains(t, entry.Note, "Сергей")

	assert.Equal(t, 4500.0, *out.Order.MasterChange)
}

func TestFinalizeRefusedNoCash(t *testing.T) {
	store, _, svc := fixture()
	ctx := context.Background()

	_, err := svc.AssignMaster(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusInProgress)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, 100, 7, models.StatusRefused, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusRefused, store.orders[100].Status)
	assert.Empty(t, store.cash)
	assert.NotNil(t, store.orders[100].ClosedAt)
}

func TestFinalizeNegativeAmounts(t *testing.T) {
	store, _, svc := fixture()
	ctx := context.Background()

	_, err := svc.AssignMaster(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusInProgress)
	require.NoError(t, err)

	writes := store.writes
	_, err = svc.Finalize(ctx, 100, 7, models.StatusDone, &Financials{Gross: -1, Expenditure: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Finalize(ctx, 100, 7, models.StatusDone, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, writes, store.writes)
}

func TestModernTrimsKeyboardThenCloses(t *testing.T) {
	store, notifier, svc := fixture()
	ctx := context.Background()

	_, err := svc.AssignMaster(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, 100, 7)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, 100, 7, models.StatusInProgress)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, 100, 7, models.StatusModern, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusModern, store.orders[100].Status)
	assert.Nil(t, store.orders[100].ClosedAt)
	assert.Empty(t, store.cash)

	// Only Done and Refused remain on the card.
	last := notifier.sent[len(notifier.sent)-1]
	require.Len(t, last.buttons, 2)
	assert.Equal(t, "order_ready_100", last.buttons[0][0].Data)
	assert.Equal(t, "order_refuse_100", last.buttons[1][0].Data)

	// Modern cannot rejoin the linear chain.
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Finalize(ctx, 100, 7, models.StatusNotAnOrder, nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Modern -> Done still settles.
	_, err = svc.Finalize(ctx, 100, 7, models.StatusDone, &Financials{Gross: 5000, Expenditure: 500})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, store.orders[100].Status)
	require.Len(t, store.cash, 1)
	assert.Equal(t, 2250.0, store.cash[0].Amount)
}

func TestFiredMasterCannotDriveOrder(t *testing.T) {
	store, notifier, svc := fixture()
	store.orders[100].MasterID = ptr(int64(7))
	store.masters[7].StatusWork = models.MasterStatusFired

	_, err := svc.Accept(context.Background(), 100, 7)
	require.ErrorIs(t, err, ErrMasterInactive)
	assert.Equal(t, models.StatusWaiting, store.orders[100].Status)

	store.orders[100].Status = models.StatusAccepted
	_, err = svc.Advance(context.Background(), 100, 7, models.StatusEnRoute)
	require.ErrorIs(t, err, ErrMasterInactive)

	store.orders[100].Status = models.StatusInProgress
	_, err = svc.Finalize(context.Background(), 100, 7, models.StatusDone,
		&Financials{Gross: 10000, Expenditure: 1000})
	require.ErrorIs(t, err, ErrMasterInactive)

	assert.Zero(t, store.writes)
	assert.Empty(t, store.cash)
	assert.Empty(t, notifier.sent)
}

func TestTerminalOrderRejectsEverything(t *testing.T) {
	store, _, svc := fixture()
	ctx := context.Background()
	store.orders[100].Status = models.StatusDone
	store.orders[100].MasterID = ptr(int64(7))

	writes := store.writes
	_, err := svc.AssignMaster(ctx, 100, 8)
	require.ErrorIs(t, err, ErrTerminalState)
	_, err = svc.Accept(ctx, 100, 7)
	require.ErrorIs(t, err, ErrTerminalState)
	_, err = svc.Reject(ctx, 100, 7)
	require.ErrorIs(t, err, ErrTerminalState)
	_, err = svc.Advance(ctx, 100, 7, models.StatusEnRoute)
	require.ErrorIs(t, err, ErrTerminalState)
	_, err = svc.Finalize(ctx, 100, 7, models.StatusRefused, nil)
	require.ErrorIs(t, err, ErrTerminalState)
	assert.Equal(t, writes, store.writes)
}

func TestDeliveryFailureDoesNotRollBack(t *testing.T) {
	store, notifier, svc := fixture()
	notifier.sendErr = errors.New("bot was blocked by the user")

	out, err := svc.AssignMaster(context.Background(), 100, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), *store.orders[100].MasterID)
	assert.NotEmpty(t, out.Warnings)
}

func TestAssignMasterWithoutChatWarns(t *testing.T) {
	store, notifier, svc := fixture()
	store.masters[7].ChatID = nil

	out, err := svc.AssignMaster(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *store.orders[100].MasterID)
	assert.Empty(t, notifier.sent)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "chat_id")
}

func TestParseCallback(t *testing.T) {
	action, id, ok := ParseCallback("order_accept_42")
	require.True(t, ok)
	assert.Equal(t, ActionAccept, action)
	assert.Equal(t, int64(42), id)

	action, id, ok = ParseCallback("order_not_order_7")
	require.True(t, ok)
	assert.Equal(t, ActionNotOrder, action)
	assert.Equal(t, int64(7), id)

	_, _, ok = ParseCallback("cash_income")
	assert.False(t, ok)
	_, _, ok = ParseCallback("order_accept_")
	assert.False(t, ok)
}

func TestCardTextEscapesUserText(t *testing.T) {
	o := &models.Order{
		ID: 1, RK: "Авито", City: "Москва", Phone: "+7999",
		ClientName: "Ив*ан_", Address: "ул. Тестовая", Problem: "не греет [совсем]",
		TypeOrder: "Ремонт", TypeEquipment: "Холодильник",
		DateMeeting: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		Status:      models.StatusWaiting,
	}
	text := CardText(o, "")
	assert.Contains(t, text, `Ив\*ан\_`)
	assert.Contains(t, text, `\[совсем\]`)
	assert.Contains(t, text, "02.01.2026 10:00")
	assert.NotContains(t, text, "Назначен мастер")
}
