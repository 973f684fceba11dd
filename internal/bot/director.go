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

func (b *Bot) handleDirectorMessage(ctx context.Context, msg *tgbotapi.Message, dir *models.Director, text string) {
	chatID := msg.Chat.ID

	switch text {
	case "📋 Заявки":
		b.replyWithKeyboard(chatID, "Раздел заявок:", ordersMenu)
	case "🆕 Новые":
		b.listOrdersFor(ctx, chatID, "🆕 Новые заявки", []models.Status{models.StatusWaiting}, dir.Cities)
	case "🔄 Модерны":
		b.listOrdersFor(ctx, chatID, "🔄 Модерны", []models.Status{models.StatusModern}, dir.Cities)
	case "⚙️ В работе":
		b.listOrdersFor(ctx, chatID, "⚙️ Заявки в работе",
			[]models.Status{models.StatusAccepted, models.StatusEnRoute, models.StatusInProgress}, dir.Cities)
	case "🔍 Поиск":
		st := b.state.get(msg.From.ID)
		st.Step = stepOrderSearch
		b.reply(chatID, "🔍 Введите номер заявки, телефон или имя клиента:")
	case "💰 Касса":
		b.replyWithKeyboard(chatID, "Раздел кассы:", cashMenu)
	case "💰 Баланс":
		b.showBalance(ctx, chatID, dir.Cities)
	case "📊 История":
		b.replyWithKeyboard(chatID, "За какой период выгрузить историю?", periodKeyboard("history"))
	case "➖ Расход":
		b.startCashFlow(ctx, msg.From.ID, chatID, models.CashExpense, dir.Cities)
	case "➕ Приход":
		b.startCashFlow(ctx, msg.From.ID, chatID, models.CashIncome, dir.Cities)
	case "📊 Отчеты":
		b.replyWithKeyboard(chatID, "Раздел отчетов:", reportsMenu)
	case "🏙️ Отчет по городу":
		b.replyWithKeyboard(chatID, "За какой период построить отчет?", periodKeyboard("repcity"))
	case "🔧 Отчет по мастерам":
		b.replyWithKeyboard(chatID, "За какой период построить отчет?", periodKeyboard("repmast"))
	case "👥 Сотрудники":
		b.replyWithKeyboard(chatID, "Раздел сотрудников:", employeesMenu)
	case "📋 Список мастеров":
		b.listMasters(ctx, chatID, dir.Cities, 0)
	case "🔍 Поиск мастера":
		st := b.state.get(msg.From.ID)
		st.Step = stepMasterSearch
		b.reply(chatID, "🔍 Введите имя мастера:")
	case "➕ Добавить мастера":
		st := b.state.get(msg.From.ID)
		*st = userState{Step: stepMasterName}
		b.reply(chatID, "👤 Введите имя нового мастера:")
	case "⬅️ Назад":
		b.state.reset(msg.From.ID)
		b.replyWithKeyboard(chatID, "Выберите действие:", mainMenu)
	default:
		b.handleDirectorStep(ctx, msg, dir, text)
	}
}

func (b *Bot) handleDirectorStep(ctx context.Context, msg *tgbotapi.Message, dir *models.Director, text string) {
	st := b.state.get(msg.From.ID)
	chatID := msg.Chat.ID

	switch st.Step {
	case stepOrderSearch:
		st.Step = stepNone
		b.searchOrders(ctx, chatID, text, dir.Cities)
	case stepMasterSearch:
		st.Step = stepNone
		b.searchMasters(ctx, chatID, text, dir.Cities)
	case stepHistoryDate:
		b.handleHistoryDate(ctx, msg.From.ID, chatID, text, dir.Cities)
	case stepReportDate:
		b.handleReportDate(ctx, msg.From.ID, chatID, text, dir.Cities)
	case stepCashCity:
		b.replyWithKeyboard(chatID, "🏙️ Выберите город кнопкой ниже:", cityKeyboard(dir.Cities, "cashcity"))
	case stepCashPurpose, stepCashAmount, stepCashNote:
		b.handleCashInput(ctx, msg.From.ID, chatID, text, dir.Name)
	case stepMasterName:
		st.Master.Name = text
		st.Step = stepMasterCities
		b.replyWithKeyboard(chatID, "🏙️ Выберите города мастера (повторное нажатие убирает город):",
			addCityKeyboard(dir.Cities, st.Master.Cities))
	case stepMasterChat:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			b.reply(chatID, "❌ chat\\_id должен быть числом. Попробуйте еще раз:")
			return
		}
		st.Master.ChatID = &id
		st.Step = stepMasterTg
		b.reply(chatID, "🆔 Введите tg\\_id мастера (или `-`, чтобы пропустить):")
	case stepMasterTg:
		if text != "-" {
			id, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				b.reply(chatID, "❌ tg\\_id должен быть числом или `-`. Попробуйте еще раз:")
				return
			}
			st.Master.TgID = &id
		}
		st.Step = stepMasterConfirm
		b.replyWithKeyboard(chatID, masterDraftSummary(st), confirmKeyboard("addmaster"))
	case stepMasterEditTg:
		b.applyMasterEdit(ctx, msg.From.ID, chatID, text, true)
	case stepMasterEditChat:
		b.applyMasterEdit(ctx, msg.From.ID, chatID, text, false)
	default:
		b.replyWithKeyboard(chatID, "Выберите действие:", mainMenu)
	}
}

func (b *Bot) handleDirectorCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, dir *models.Director, data string) {
	chatID := cq.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, "view_"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "view_"), 10, 64); err == nil {
			b.showOrderCard(ctx, chatID, id, dir)
		}
	case strings.HasPrefix(data, "assign_master_"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "assign_master_"), 10, 64); err == nil {
			b.showMasterPicker(ctx, chatID, id, dir)
		}
	case strings.HasPrefix(data, "select_master_"):
		b.assignMaster(ctx, chatID, strings.TrimPrefix(data, "select_master_"))
	case strings.HasPrefix(data, "cashcity_"), strings.HasPrefix(data, "cashpurpose_"),
		strings.HasPrefix(data, "cashconfirm_"):
		b.handleCashCallback(ctx, cq.From.ID, chatID, data, dir.Name)
	case strings.HasPrefix(data, "history_"):
		b.handleHistoryPeriod(ctx, cq.From.ID, chatID, strings.TrimPrefix(data, "history_"), dir.Cities)
	case strings.HasPrefix(data, "repcity_"):
		b.handleReportPeriod(ctx, cq.From.ID, chatID, "city", strings.TrimPrefix(data, "repcity_"), dir.Cities)
	case strings.HasPrefix(data, "repmast_"):
		b.handleReportPeriod(ctx, cq.From.ID, chatID, "masters", strings.TrimPrefix(data, "repmast_"), dir.Cities)
	case strings.HasPrefix(data, "emp_page_"):
		if page, err := strconv.Atoi(strings.TrimPrefix(data, "emp_page_")); err == nil {
			b.listMasters(ctx, chatID, dir.Cities, page)
		}
	case strings.HasPrefix(data, "emp_view_"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "emp_view_"), 10, 64); err == nil {
			b.showMasterCard(ctx, chatID, id)
		}
	case strings.HasPrefix(data, "emp_fire_"):
		b.setMasterStatus(ctx, chatID, strings.TrimPrefix(data, "emp_fire_"), models.MasterStatusFired)
	case strings.HasPrefix(data, "emp_rehire_"):
		b.setMasterStatus(ctx, chatID, strings.TrimPrefix(data, "emp_rehire_"), models.MasterStatusActive)
	case strings.HasPrefix(data, "emp_tg_"):
		b.startMasterEdit(cq.From.ID, chatID, strings.TrimPrefix(data, "emp_tg_"), stepMasterEditTg,
			"🆔 Введите новый tg\\_id:")
	case strings.HasPrefix(data, "emp_chat_"):
		b.startMasterEdit(cq.From.ID, chatID, strings.TrimPrefix(data, "emp_chat_"), stepMasterEditChat,
			"💬 Введите новый chat\\_id:")
	case strings.HasPrefix(data, "addcity_"):
		b.handleAddCityToggle(cq, dir, strings.TrimPrefix(data, "addcity_"))
	case strings.HasPrefix(data, "addmaster_"):
		b.finishAddMaster(ctx, cq.From.ID, chatID, data == "addmaster_yes")
	}
}

func (b *Bot) listOrdersFor(ctx context.Context, chatID int64, title string, statuses []models.Status, cities []string) {
	orders, err := b.db.ListOrders(ctx, statuses, cities, listLimit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list orders failed")
		b.reply(chatID, "❌ Не удалось получить заявки")
		return
	}
	if len(orders) == 0 {
		b.reply(chatID, "Заявок не найдено")
		return
	}
	b.replyWithKeyboard(chatID, fmt.Sprintf("%s (%d):", title, len(orders)), orderButtons(orders))
}

func (b *Bot) searchOrders(ctx context.Context, chatID int64, query string, cities []string) {
	orders, err := b.db.SearchOrders(ctx, query, cities, listLimit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("order search failed")
		b.reply(chatID, "❌ Ошибка поиска")
		return
	}
	if len(orders) == 0 {
		b.reply(chatID, "По вашему запросу ничего не найдено")
		return
	}
	b.replyWithKeyboard(chatID, fmt.Sprintf("🔍 Найдено заявок: %d", len(orders)), orderButtons(orders))
}

func (b *Bot) showOrderCard(ctx context.Context, chatID int64, orderID int64, dir *models.Director) {
	o, err := b.db.GetOrder(ctx, orderID)
	if err != nil || o == nil {
		b.reply(chatID, "Заявка не найдена")
		return
	}
	if !dir.Covers(o.City) {
		b.reply(chatID, "⛔ Заявка вне ваших городов")
		return
	}

	masterName := ""
	if o.MasterID != nil {
		if m, err := b.db.GetMaster(ctx, *o.MasterID); err == nil && m != nil {
			masterName = m.Name
		}
	}

	text := lifecycle.CardText(o, masterName)
	if o.Status == models.StatusWaiting {
		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨‍🔧 Назначить мастера",
				fmt.Sprintf("assign_master_%d", o.ID)),
		))
		b.replyWithKeyboard(chatID, text, kb)
		return
	}
	b.reply(chatID, text)
}

func (b *Bot) showMasterPicker(ctx context.Context, chatID int64, orderID int64, dir *models.Director) {
	o, err := b.db.GetOrder(ctx, orderID)
	if err != nil || o == nil {
		b.reply(chatID, "Заявка не найдена")
		return
	}
	masters, err := b.db.ListActiveMasters(ctx, []string{o.City}, listLimit, 0)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("master picker failed")
		b.reply(chatID, "❌ Не удалось получить мастеров")
		return
	}
	if len(masters) == 0 {
		b.reply(chatID, "Работающих мастеров в городе заявки не найдено")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(masters))
	for _, m := range masters {
		label := fmt.Sprintf("%s (%s)", m.Name, strings.Join(m.Cities, ", "))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label,
				fmt.Sprintf("select_master_%d_%d", orderID, m.ID)),
		))
	}
	b.replyWithKeyboard(chatID, "👨‍🔧 Выберите мастера для назначения:",
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) assignMaster(ctx context.Context, chatID int64, payload string) {
	parts := strings.SplitN(payload, "_", 2)
	if len(parts) != 2 {
		return
	}
	orderID, err1 := strconv.ParseInt(parts[0], 10, 64)
	masterID, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return
	}

	out, err := b.orders.AssignMaster(ctx, orderID, masterID)
	if err != nil {
		b.reply(chatID, assignErrorText(err))
		return
	}

	m, _ := b.db.GetMaster(ctx, masterID)
	name := ""
	if m != nil {
		name = m.Name
	}
	b.reply(chatID, fmt.Sprintf("✅ Мастер %s назначен на заявку №%d", name, orderID))
	b.replyWarnings(chatID, out.Warnings)
}

func assignErrorText(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return "Заявка или мастер не найдены"
	case errors.Is(err, lifecycle.ErrTerminalState):
		return "❌ Заявка уже закрыта"
	case errors.Is(err, lifecycle.ErrMasterInactive):
		return "❌ Мастер уволен и не может получать заявки"
	case errors.Is(err, lifecycle.ErrNoCityOverlap):
		return "❌ Мастер не работает в городе заявки"
	}
	return "❌ Не удалось назначить мастера"
}

func (b *Bot) listMasters(ctx context.Context, chatID int64, cities []string, page int) {
	total, err := b.db.CountActiveMasters(ctx, cities)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("count masters failed")
		b.reply(chatID, "❌ Не удалось получить список мастеров")
		return
	}
	if total == 0 {
		b.reply(chatID, "Работающих мастеров не найдено")
		return
	}
	if page < 0 {
		page = 0
	}

	masters, err := b.db.ListActiveMasters(ctx, cities, b.pageSize, page*b.pageSize)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list masters failed")
		b.reply(chatID, "❌ Не удалось получить список мастеров")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(masters)+1)
	for _, m := range masters {
		label := fmt.Sprintf("%s (%s)", m.Name, strings.Join(m.Cities, ", "))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("emp_view_%d", m.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️",
			fmt.Sprintf("emp_page_%d", page-1)))
	}
	if (page+1)*b.pageSize < total {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️",
			fmt.Sprintf("emp_page_%d", page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	pages := (total + b.pageSize - 1) / b.pageSize
	b.replyWithKeyboard(chatID,
		fmt.Sprintf("👥 Мастера (стр. %d из %d):", page+1, pages),
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) searchMasters(ctx context.Context, chatID int64, name string, cities []string) {
	masters, err := b.db.SearchMastersByName(ctx, name, cities)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("master search failed")
		b.reply(chatID, "❌ Ошибка поиска")
		return
	}
	if len(masters) == 0 {
		b.reply(chatID, "Мастеров с таким именем не найдено")
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(masters))
	for _, m := range masters {
		label := fmt.Sprintf("%s (%s)", m.Name, strings.Join(m.Cities, ", "))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("emp_view_%d", m.ID)),
		))
	}
	b.replyWithKeyboard(chatID, fmt.Sprintf("🔍 Найдено мастеров: %d", len(masters)),
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) showMasterCard(ctx context.Context, chatID int64, masterID int64) {
	m, err := b.db.GetMaster(ctx, masterID)
	if err != nil || m == nil {
		b.reply(chatID, "Мастер не найден")
		return
	}

	chat := "не указан"
	if m.ChatID != nil {
		chat = strconv.FormatInt(*m.ChatID, 10)
	}
	tg := "не указан"
	if m.TgID != nil {
		tg = strconv.FormatInt(*m.TgID, 10)
	}

	text := fmt.Sprintf(
		"👨‍🔧 *%s*\n\n🏙️ Города: %s\n📌 Статус: %s\n💬 chat\\_id: `%s`\n🆔 tg\\_id: `%s`",
		lifecycle.EscapeMarkdown(m.Name), lifecycle.EscapeMarkdown(strings.Join(m.Cities, ", ")),
		m.StatusWork, chat, tg)

	var statusBtn tgbotapi.InlineKeyboardButton
	if m.Active() {
		statusBtn = tgbotapi.NewInlineKeyboardButtonData("🚫 Уволить",
			fmt.Sprintf("emp_fire_%d", m.ID))
	} else {
		statusBtn = tgbotapi.NewInlineKeyboardButtonData("✅ Вернуть на работу",
			fmt.Sprintf("emp_rehire_%d", m.ID))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(statusBtn),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ tg_id", fmt.Sprintf("emp_tg_%d", m.ID)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ chat_id", fmt.Sprintf("emp_chat_%d", m.ID)),
		),
	)
	b.replyWithKeyboard(chatID, text, kb)
}

func (b *Bot) setMasterStatus(ctx context.Context, chatID int64, rawID, status string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}
	if err := b.db.UpdateMasterStatus(ctx, id, status); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("master_id", id).Msg("status update failed")
		b.reply(chatID, "❌ Не удалось обновить статус")
		return
	}
	if status == models.MasterStatusFired {
		b.reply(chatID, "🚫 Мастер уволен")
	} else {
		b.reply(chatID, "✅ Мастер снова работает")
	}
}

func (b *Bot) startMasterEdit(userID, chatID int64, rawID string, s step, prompt string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return
	}
	st := b.state.get(userID)
	st.Step = s
	st.EditMasterID = id
	b.reply(chatID, prompt)
}

func (b *Bot) applyMasterEdit(ctx context.Context, userID, chatID int64, text string, isTg bool) {
	st := b.state.get(userID)
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		b.reply(chatID, "❌ Значение должно быть числом. Попробуйте еще раз:")
		return
	}

	m, dbErr := b.db.GetMaster(ctx, st.EditMasterID)
	if dbErr != nil || m == nil {
		b.state.reset(userID)
		b.reply(chatID, "Мастер не найден")
		return
	}

	chatRef, tgRef := m.ChatID, m.TgID
	if isTg {
		tgRef = &id
	} else {
		chatRef = &id
	}
	if err := b.db.UpdateMasterContacts(ctx, m.ID, chatRef, tgRef); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("master_id", m.ID).Msg("contacts update failed")
		b.reply(chatID, "❌ Не удалось сохранить изменения")
		return
	}
	b.state.reset(userID)
	b.reply(chatID, "✅ Данные мастера обновлены")
}

func addCityKeyboard(available, chosen []string) tgbotapi.InlineKeyboardMarkup {
	chosenSet := make(map[string]bool, len(chosen))
	for _, c := range chosen {
		chosenSet[c] = true
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(available)+1)
	for _, city := range available {
		label := city
		if chosenSet[city] {
			label = "✅ " + city
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "addcity_"+city),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➡️ Готово", "addcity_done"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleAddCityToggle(cq *tgbotapi.CallbackQuery, dir *models.Director, city string) {
	st := b.state.get(cq.From.ID)
	if st.Step != stepMasterCities {
		return
	}
	chatID := cq.Message.Chat.ID

	if city == "done" {
		if len(st.Master.Cities) == 0 {
			b.reply(chatID, "❌ Выберите хотя бы один город")
			return
		}
		st.Step = stepMasterChat
		b.reply(chatID, "💬 Введите chat\\_id мастера (куда слать заявки):")
		return
	}

	st.toggleCity(city)
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID,
		addCityKeyboard(dir.Cities, st.Master.Cities))
	_, _ = b.tg.Send(edit)
}

func masterDraftSummary(st *userState) string {
	tg := "-"
	if st.Master.TgID != nil {
		tg = strconv.FormatInt(*st.Master.TgID, 10)
	}
	chat := "-"
	if st.Master.ChatID != nil {
		chat = strconv.FormatInt(*st.Master.ChatID, 10)
	}
	return fmt.Sprintf(
		"Добавить мастера?\n\n👤 Имя: %s\n🏙️ Города: %s\n💬 chat\\_id: `%s`\n🆔 tg\\_id: `%s`",
		lifecycle.EscapeMarkdown(st.Master.Name),
		lifecycle.EscapeMarkdown(strings.Join(st.Master.Cities, ", ")), chat, tg)
}

func (b *Bot) finishAddMaster(ctx context.Context, userID, chatID int64, confirmed bool) {
	st := b.state.get(userID)
	if st.Step != stepMasterConfirm {
		return
	}
	if !confirmed {
		b.state.reset(userID)
		b.reply(chatID, "Добавление мастера отменено")
		return
	}

	id, err := b.db.CreateMaster(ctx, st.draftMaster())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("create master failed")
		b.reply(chatID, "❌ Не удалось добавить мастера")
		return
	}
	name := st.Master.Name
	b.state.reset(userID)
	b.reply(chatID, fmt.Sprintf("✅ Мастер %s добавлен (ID %d)", name, id))
}
