// Package lifecycle drives orders through their status machine. Every
// mutation is validated against the transition table, written in one
// transaction, and only then announced over Telegram. Delivery failures are
// reported as warnings and never undo a committed write.
package lifecycle

import (
	"context"
	"fmt"

	"callcentre-bot/internal/metrics"
	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"

	"github.com/rs/zerolog"
)

// Store is the persistence surface the controller needs.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetMaster(ctx context.Context, id int64) (*models.Master, error)
	GetDirectorByCity(ctx context.Context, city string) (*models.Director, error)
	SetOrderMaster(ctx context.Context, orderID int64, masterID *int64, status models.Status) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.Status) error
	FinalizeOrder(ctx context.Context, order *models.Order, entry *models.CashEntry) error
	GetCard(ctx context.Context, orderID int64, audience string) (*models.CardRef, error)
	SaveCard(ctx context.Context, ref *models.CardRef) error
	DeleteCard(ctx context.Context, orderID int64, audience string) error
}

// Notifier is the delivery surface, satisfied by notify.Dispatcher.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, buttons [][]notify.Button) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Financials carries the settlement figures for a completed order.
type Financials struct {
	Gross       float64
	Expenditure float64
}

// Outcome reports a successful mutation plus any delivery warnings the
// caller should surface to the operator.
type Outcome struct {
	Order    *models.Order
	Warnings []string
}

func (o *Outcome) warnf(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Service is the order lifecycle controller.
type Service struct {
	store    Store
	notifier Notifier
}

// New creates the controller.
func New(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

func (s *Service) order(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return o, nil
}

// activeMaster resolves a master that is allowed to act on orders. A fired
// master keeps their history but loses every order operation immediately.
func (s *Service) activeMaster(ctx context.Context, masterID int64) (*models.Master, error) {
	m, err := s.store.GetMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("master %d: %w", masterID, ErrNotFound)
	}
	if !m.Active() {
		return nil, fmt.Errorf("master %s: %w", m.Name, ErrMasterInactive)
	}
	return m, nil
}

func (s *Service) masterName(ctx context.Context, masterID *int64) string {
	if masterID == nil {
		return ""
	}
	m, err := s.store.GetMaster(ctx, *masterID)
	if err != nil || m == nil {
		return "Не указано"
	}
	return m.Name
}

// AssignMaster puts the order into the master's hands. Re-assignment from
// any non-terminal state resets the order to Waiting, retracts the previous
// master's card and sends a cancellation notice before the new offer goes
// out.
func (s *Service) AssignMaster(ctx context.Context, orderID, masterID int64) (*Outcome, error) {
	o, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrTerminalState)
	}

	m, err := s.activeMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}
	if !m.WorksIn(o.City) {
		return nil, fmt.Errorf("master %s, city %s: %w", m.Name, o.City, ErrNoCityOverlap)
	}

	prevMasterID := o.MasterID
	if err := s.store.SetOrderMaster(ctx, orderID, &masterID, models.StatusWaiting); err != nil {
		return nil, err
	}
	metrics.IncOrderTransition(string(models.StatusWaiting))

	o.MasterID = &masterID
	o.Status = models.StatusWaiting
	out := &Outcome{Order: o}

	if prevMasterID != nil && *prevMasterID != masterID {
		s.cancelPreviousMaster(ctx, o, *prevMasterID, out)
	}
	s.offerToMaster(ctx, o, m, out)
	return out, nil
}

func (s *Service) cancelPreviousMaster(ctx context.Context, o *models.Order, prevID int64, out *Outcome) {
	logger := zerolog.Ctx(ctx)

	s.retractCard(ctx, o.ID, models.AudienceMaster)

	prev, err := s.store.GetMaster(ctx, prevID)
	if err != nil || prev == nil || prev.ChatID == nil {
		return
	}
	text := fmt.Sprintf("❌ Заказ №%d передан другому мастеру", o.ID)
	if _, err := s.notifier.Send(ctx, *prev.ChatID, text, nil); err != nil {
		logger.Warn().Err(err).Int64("order_id", o.ID).Int64("master_id", prevID).
			Msg("cancellation notice not delivered")
		out.warnf("мастер %s не получил уведомление об отмене", prev.Name)
	}
}

func (s *Service) offerToMaster(ctx context.Context, o *models.Order, m *models.Master, out *Outcome) {
	logger := zerolog.Ctx(ctx)

	if m.ChatID == nil {
		out.warnf("у мастера %s не указан chat_id, заявка не отправлена", m.Name)
		return
	}
	text := "🔔 *Новая заявка назначена*\n\n" + CardText(o, m.Name)
	msgID, err := s.notifier.Send(ctx, *m.ChatID, text, MasterButtons(o))
	if err != nil {
		logger.Warn().Err(err).Int64("order_id", o.ID).Int64("master_id", m.ID).
			Msg("offer not delivered")
		out.warnf("заявка не доставлена мастеру %s", m.Name)
		return
	}
	s.saveCard(ctx, &models.CardRef{
		OrderID:   o.ID,
		Audience:  models.AudienceMaster,
		ChatID:    *m.ChatID,
		MessageID: msgID,
	})
}

// Accept moves a Waiting order to Accepted. Only the assigned, still-active
// master may accept.
func (s *Service) Accept(ctx context.Context, orderID, masterID int64) (*Outcome, error) {
	o, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrTerminalState)
	}
	if o.MasterID == nil || *o.MasterID != masterID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotAssigned)
	}
	if _, err := s.activeMaster(ctx, masterID); err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(models.StatusAccepted) {
		return nil, fmt.Errorf("%s → %s: %w", o.Status, models.StatusAccepted, ErrInvalidTransition)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.StatusAccepted); err != nil {
		return nil, err
	}
	metrics.IncOrderTransition(string(models.StatusAccepted))

	o.Status = models.StatusAccepted
	out := &Outcome{Order: o}
	s.recard(ctx, o, out)
	return out, nil
}

// Reject sends the order back to the unassigned pool. Allowed from Waiting
// and Accepted only; the city's director is notified.
func (s *Service) Reject(ctx context.Context, orderID, masterID int64) (*Outcome, error) {
	o, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrTerminalState)
	}
	if o.MasterID == nil || *o.MasterID != masterID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotAssigned)
	}
	if o.Status != models.StatusWaiting && o.Status != models.StatusAccepted {
		return nil, fmt.Errorf("reject from %s: %w", o.Status, ErrInvalidTransition)
	}

	masterName := s.masterName(ctx, o.MasterID)
	if err := s.store.SetOrderMaster(ctx, orderID, nil, models.StatusWaiting); err != nil {
		return nil, err
	}
	metrics.IncOrderTransition(string(models.StatusWaiting))

	o.MasterID = nil
	o.Status = models.StatusWaiting
	out := &Outcome{Order: o}

	s.retractCard(ctx, orderID, models.AudienceMaster)
	s.notifyDirector(ctx, o,
		fmt.Sprintf("⚠️ Мастер %s отклонил заказ №%d (%s)", masterName, o.ID, o.City), out)
	return out, nil
}

// Advance moves the order one step along the linear chain
// (Accepted → EnRoute → InProgress) and re-renders the master's card.
func (s *Service) Advance(ctx context.Context, orderID, masterID int64, next models.Status) (*Outcome, error) {
	if next != models.StatusEnRoute && next != models.StatusInProgress {
		return nil, fmt.Errorf("advance to %s: %w", next, ErrInvalidTransition)
	}

	o, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrTerminalState)
	}
	if o.MasterID == nil || *o.MasterID != masterID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotAssigned)
	}
	if _, err := s.activeMaster(ctx, masterID); err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(next) {
		return nil, fmt.Errorf("%s → %s: %w", o.Status, next, ErrInvalidTransition)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, next); err != nil {
		return nil, err
	}
	metrics.IncOrderTransition(string(next))

	o.Status = next
	out := &Outcome{Order: o}
	s.recard(ctx, o, out)
	return out, nil
}

// Finalize closes the order (Done, Refused, NotAnOrder) or parks it as
// Modern. Done requires financials: clean = gross - expenditure, the
// master's share is half of clean, and exactly one income ledger line is
// appended in the same transaction.
func (s *Service) Finalize(ctx context.Context, orderID, masterID int64, status models.Status, fin *Financials) (*Outcome, error) {
	o, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrTerminalState)
	}
	if o.MasterID == nil || *o.MasterID != masterID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotAssigned)
	}
	m, err := s.activeMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(status) {
		return nil, fmt.Errorf("%s → %s: %w", o.Status, status, ErrInvalidTransition)
	}

	masterName := m.Name
	var entry *models.CashEntry

	o.Status = status
	if status == models.StatusDone {
		if fin == nil || fin.Gross < 0 || fin.Expenditure < 0 {
			return nil, ErrInvalidAmount
		}
		clean := fin.Gross - fin.Expenditure
		masterChange := clean / 2
		o.Result = &fin.Gross
		o.Expenditure = &fin.Expenditure
		o.Clean = &clean
		o.MasterChange = &masterChange
		entry = &models.CashEntry{
			Type:           models.CashIncome,
			Amount:         masterChange,
			City:           o.City,
			Note:           fmt.Sprintf("%s - Итог по заказу: %s₽", masterName, formatMoney(fin.Gross)),
			CreatedBy:      "Система Бот",
			PaymentPurpose: fmt.Sprintf("Заказ №%d", o.ID),
		}
	}

	if err := s.store.FinalizeOrder(ctx, o, entry); err != nil {
		return nil, err
	}
	metrics.IncOrderTransition(string(status))
	if entry != nil {
		metrics.IncCashEntry(entry.Type)
	}

	out := &Outcome{Order: o}
	s.retractCard(ctx, orderID, models.AudienceMaster)

	if status == models.StatusModern {
		// Modern keeps the order alive with a trimmed keyboard.
		s.recard(ctx, o, out)
		return out, nil
	}

	s.sendClosingCard(ctx, o, masterName, out)
	return out, nil
}

func (s *Service) sendClosingCard(ctx context.Context, o *models.Order, masterName string, out *Outcome) {
	logger := zerolog.Ctx(ctx)

	m, err := s.store.GetMaster(ctx, *o.MasterID)
	if err != nil || m == nil || m.ChatID == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, *m.ChatID, SettledCardText(o, masterName), nil); err != nil {
		logger.Warn().Err(err).Int64("order_id", o.ID).Msg("closing card not delivered")
		out.warnf("итоговая карточка не доставлена мастеру %s", masterName)
	}
}

// recard deletes the master's previous card and sends a fresh one with the
// keyboard matching the order's new status.
func (s *Service) recard(ctx context.Context, o *models.Order, out *Outcome) {
	logger := zerolog.Ctx(ctx)

	m, err := s.store.GetMaster(ctx, *o.MasterID)
	if err != nil || m == nil || m.ChatID == nil {
		return
	}

	s.retractCard(ctx, o.ID, models.AudienceMaster)

	msgID, err := s.notifier.Send(ctx, *m.ChatID, CardText(o, m.Name), MasterButtons(o))
	if err != nil {
		logger.Warn().Err(err).Int64("order_id", o.ID).Msg("card not delivered")
		out.warnf("карточка заявки №%d не доставлена", o.ID)
		return
	}
	s.saveCard(ctx, &models.CardRef{
		OrderID:   o.ID,
		Audience:  models.AudienceMaster,
		ChatID:    *m.ChatID,
		MessageID: msgID,
	})
}

// retractCard deletes the stale card message and its pointer. Best-effort:
// Telegram rejects deletes of old messages.
func (s *Service) retractCard(ctx context.Context, orderID int64, audience string) {
	logger := zerolog.Ctx(ctx)

	ref, err := s.store.GetCard(ctx, orderID, audience)
	if err != nil || ref == nil {
		return
	}
	if err := s.notifier.Delete(ctx, ref.ChatID, ref.MessageID); err != nil {
		logger.Debug().Err(err).Int64("order_id", orderID).Msg("stale card not deleted")
	}
	if err := s.store.DeleteCard(ctx, orderID, audience); err != nil {
		logger.Warn().Err(err).Int64("order_id", orderID).Msg("card pointer not cleared")
	}
}

func (s *Service) saveCard(ctx context.Context, ref *models.CardRef) {
	if err := s.store.SaveCard(ctx, ref); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("order_id", ref.OrderID).
			Msg("card pointer not saved")
	}
}

func (s *Service) notifyDirector(ctx context.Context, o *models.Order, text string, out *Outcome) {
	logger := zerolog.Ctx(ctx)

	dir, err := s.store.GetDirectorByCity(ctx, o.City)
	if err != nil || dir == nil || dir.TgID == nil {
		logger.Warn().Int64("order_id", o.ID).Str("city", o.City).
			Msg("no director to notify")
		out.warnf("директор города %s не найден", o.City)
		return
	}
	if _, err := s.notifier.Send(ctx, *dir.TgID, text, nil); err != nil {
		logger.Warn().Err(err).Int64("order_id", o.ID).Msg("director not notified")
		out.warnf("директор %s не получил уведомление", dir.Name)
	}
}
