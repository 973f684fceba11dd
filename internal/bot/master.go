package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"callcentre-bot/internal/lifecycle"
	"callcentre-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleMasterMessage(ctx context.Context, msg *tgbotapi.Message, m *models.Master, text string) {
	chatID := msg.Chat.ID

	switch text {
	case "📋 Мои заявки":
		b.replyWithKeyboard(chatID, "Ваши заявки:", masterOrdersMenu)
	case "🆕 Новые заявки":
		b.listMasterOrdersFor(ctx, chatID, m, "🆕 Новые заявки",
			[]models.Status{models.StatusWaiting})
	case "🔧 В работе":
		b.listMasterOrdersFor(ctx, chatID, m, "🔧 Заявки в работе",
			[]models.Status{models.StatusAccepted, models.StatusEnRoute, models.StatusInProgress})
	case "🔄 Модернизации":
		b.listMasterOrdersFor(ctx, chatID, m, "🔄 Модернизации",
			[]models.Status{models.StatusModern})
	case "💰 Сдача денег":
		b.replyWithKeyboard(chatID, "Касса:", masterCashMenu)
	case "💰 Баланс":
		b.showBalance(ctx, chatID, m.Cities)
	case "📊 История":
		b.replyWithKeyboard(chatID, "За какой период выгрузить историю?", periodKeyboard("history"))
	case "➖ Расход":
		b.startCashFlow(ctx, msg.From.ID, chatID, models.CashExpense, m.Cities)
	case "➕ Приход":
		b.startCashFlow(ctx, msg.From.ID, chatID, models.CashIncome, m.Cities)
	case "📊 Моя статистика":
		b.showMasterStats(ctx, chatID, m)
	case "⬅️ Назад":
		b.state.reset(msg.From.ID)
		b.replyWithKeyboard(chatID, "Выберите действие:", masterMenu)
	default:
		b.handleMasterStep(ctx, msg, m, text)
	}
}

func (b *Bot) handleMasterStep(ctx context.Context, msg *tgbotapi.Message, m *models.Master, text string) {
	st := b.state.get(msg.From.ID)
	chatID := msg.Chat.ID

	switch st.Step {
	case stepSettleAmounts:
		b.handleSettlementInput(ctx, msg.From.ID, chatID, m, text)
	case stepHistoryDate:
		b.handleHistoryDate(ctx, msg.From.ID, chatID, text, m.Cities)
	case stepCashCity:
		b.replyWithKeyboard(chatID, "🏙️ Выберите город кнопкой ниже:", cityKeyboard(m.Cities, "cashcity"))
	case stepCashPurpose, stepCashAmount, stepCashNote:
		b.handleCashInput(ctx, msg.From.ID, chatID, text, m.Name)
	default:
		b.replyWithKeyboard(chatID, "Выберите действие:", masterMenu)
	}
}

func (b *Bot) handleMasterCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, m *models.Master, data string) {
	chatID := cq.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, "view_"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "view_"), 10, 64); err == nil {
			b.showMasterOrderCard(ctx, chatID, id, m)
		}
	case strings.HasPrefix(data, "cashcity_"), strings.HasPrefix(data, "cashpurpose_"),
		strings.HasPrefix(data, "cashconfirm_"):
		b.handleCashCallback(ctx, cq.From.ID, chatID, data, m.Name)
	case strings.HasPrefix(data, "history_"):
		b.handleHistoryPeriod(ctx, cq.From.ID, chatID, strings.TrimPrefix(data, "history_"), m.Cities)
	}
}

func (b *Bot) listMasterOrdersFor(ctx context.Context, chatID int64, m *models.Master, title string, statuses []models.Status) {
	orders, err := b.db.ListMasterOrders(ctx, m.ID, statuses, m.Cities, listLimit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list master orders failed")
		b.reply(chatID, "❌ Не удалось получить заявки")
		return
	}
	if len(orders) == 0 {
		b.reply(chatID, "Заявок не найдено")
		return
	}
	b.replyWithKeyboard(chatID, fmt.Sprintf("%s (%d):", title, len(orders)), orderButtons(orders))
}

func (b *Bot) showMasterOrderCard(ctx context.Context, chatID int64, orderID int64, m *models.Master) {
	o, err := b.db.GetOrder(ctx, orderID)
	if err != nil || o == nil {
		b.reply(chatID, "Заявка не найдена")
		return
	}
	if o.MasterID == nil || *o.MasterID != m.ID {
		b.reply(chatID, "⛔ Это не ваша заявка")
		return
	}

	text := lifecycle.CardText(o, m.Name)
	buttons := lifecycle.MasterButtons(o)
	if len(buttons) == 0 {
		b.reply(chatID, text)
		return
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		kb = append(kb, line)
	}
	b.replyWithKeyboard(chatID, text, tgbotapi.NewInlineKeyboardMarkup(kb...))
}

func (b *Bot) showMasterStats(ctx context.Context, chatID int64, m *models.Master) {
	stats, err := b.db.GetMasterStats(ctx, m.ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("master stats failed")
		b.reply(chatID, "❌ Не удалось получить статистику")
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"📊 *Ваша статистика*\n\n🔧 В работе: %d\n🔄 Модерны: %d\n✅ Завершено: %d\n💼 Заработано: %s₽",
		stats.Active, stats.Modern, stats.Done, formatMoney(stats.Earned)))
}

// handleOrderCallback executes the lifecycle card buttons. Only the assigned
// master passes the controller's ownership checks, so a forwarded card in a
// group chat stays harmless for everyone else.
func (b *Bot) handleOrderCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, action string, orderID int64) {
	chatID := cq.Message.Chat.ID

	m, err := b.db.GetMasterByTgID(ctx, cq.From.ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("master lookup failed")
		return
	}
	if m == nil {
		b.reply(chatID, "⛔ Кнопки заявки доступны только мастеру")
		return
	}

	switch action {
	case lifecycle.ActionAccept:
		out, err := b.orders.Accept(ctx, orderID, m.ID)
		if err != nil {
			b.reply(chatID, lifecycleErrorText(err))
			return
		}
		b.replyWarnings(chatID, out.Warnings)
	case lifecycle.ActionReject:
		out, err := b.orders.Reject(ctx, orderID, m.ID)
		if err != nil {
			b.reply(chatID, lifecycleErrorText(err))
			return
		}
		b.reply(chatID, fmt.Sprintf("❌ Заявка №%d отклонена", orderID))
		b.replyWarnings(chatID, out.Warnings)
	case lifecycle.ActionEnRoute:
		b.advanceOrder(ctx, chatID, orderID, m.ID, models.StatusEnRoute)
	case lifecycle.ActionInWork:
		b.advanceOrder(ctx, chatID, orderID, m.ID, models.StatusInProgress)
	case lifecycle.ActionReady:
		st := b.state.get(cq.From.ID)
		st.Step = stepSettleAmounts
		st.SettleOrderID = orderID
		b.reply(chatID, "💰 Укажите итог и расход через пробел (например: `10000 1000`):")
	case lifecycle.ActionRefuse:
		b.finalizeOrder(ctx, chatID, orderID, m.ID, models.StatusRefused, nil)
	case lifecycle.ActionModern:
		b.finalizeOrder(ctx, chatID, orderID, m.ID, models.StatusModern, nil)
	case lifecycle.ActionNotOrder:
		b.finalizeOrder(ctx, chatID, orderID, m.ID, models.StatusNotAnOrder, nil)
	}
}

func (b *Bot) advanceOrder(ctx context.Context, chatID, orderID, masterID int64, next models.Status) {
	out, err := b.orders.Advance(ctx, orderID, masterID, next)
	if err != nil {
		b.reply(chatID, lifecycleErrorText(err))
		return
	}
	b.replyWarnings(chatID, out.Warnings)
}

func (b *Bot) finalizeOrder(ctx context.Context, chatID, orderID, masterID int64, status models.Status, fin *lifecycle.Financials) {
	out, err := b.orders.Finalize(ctx, orderID, masterID, status, fin)
	if err != nil {
		b.reply(chatID, lifecycleErrorText(err))
		return
	}
	if status != models.StatusModern {
		b.reply(chatID, fmt.Sprintf("Заявка №%d: %s", orderID, status))
	}
	b.replyWarnings(chatID, out.Warnings)
}

func (b *Bot) handleSettlementInput(ctx context.Context, userID, chatID int64, m *models.Master, text string) {
	st := b.state.get(userID)
	gross, expenditure, err := parseSettlement(text)
	if err != nil {
		b.reply(chatID, "❌ Неверный формат. Укажите итог и расход через пробел (например: `10000 1000`):")
		return
	}

	orderID := st.SettleOrderID
	out, err := b.orders.Finalize(ctx, orderID, m.ID, models.StatusDone,
		&lifecycle.Financials{Gross: gross, Expenditure: expenditure})
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidAmount) {
			b.reply(chatID, "❌ Суммы не могут быть отрицательными. Попробуйте еще раз:")
			return
		}
		b.state.reset(userID)
		b.reply(chatID, lifecycleErrorText(err))
		return
	}

	b.state.reset(userID)
	b.reply(chatID, fmt.Sprintf("✅ Заявка №%d завершена. Ваша сдача: %s₽",
		orderID, formatMoney(*out.Order.MasterChange)))
	b.replyWarnings(chatID, out.Warnings)
}

func lifecycleErrorText(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return "Заявка не найдена"
	case errors.Is(err, lifecycle.ErrTerminalState):
		return "❌ Заявка уже закрыта"
	case errors.Is(err, lifecycle.ErrNotAssigned):
		return "⛔ Заявка назначена не на вас"
	case errors.Is(err, lifecycle.ErrMasterInactive):
		return "⛔ Вы не числитесь в штате, обратитесь к директору"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "❌ Недопустимый переход статуса"
	case errors.Is(err, lifecycle.ErrInvalidAmount):
		return "❌ Неверные суммы"
	}
	return "❌ Не удалось обновить заявку"
}
