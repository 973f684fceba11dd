package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"callcentre-bot/internal/export"
	"callcentre-bot/internal/metrics"
	"callcentre-bot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var (
	expensePurposes = []string{"Запчасти", "Бензин", "Зарплата", "Прочее"}
	incomePurposes  = []string{"Сдача мастера", "Прочее"}
)

func purposeKeyboard(entryType string) tgbotapi.InlineKeyboardMarkup {
	purposes := expensePurposes
	if entryType == models.CashIncome {
		purposes = incomePurposes
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(purposes))
	for _, p := range purposes {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p, "cashpurpose_"+p),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// startCashFlow begins the income/expense form. The city step is skipped
// when the caller covers exactly one city.
func (b *Bot) startCashFlow(_ context.Context, userID, chatID int64, entryType string, cities []string) {
	st := b.state.get(userID)
	*st = userState{Step: stepCashCity, Cash: cashDraft{Type: entryType}}

	if len(cities) == 1 {
		st.Cash.City = cities[0]
		st.Step = stepCashPurpose
		b.replyWithKeyboard(chatID,
			"📝 Выберите назначение платежа (или введите свое):", purposeKeyboard(entryType))
		return
	}
	b.replyWithKeyboard(chatID, "🏙️ Выберите город:", cityKeyboard(cities, "cashcity"))
}

func (b *Bot) handleCashCallback(ctx context.Context, userID, chatID int64, data, creator string) {
	st := b.state.get(userID)

	switch {
	case strings.HasPrefix(data, "cashcity_"):
		if st.Step != stepCashCity {
			return
		}
		st.Cash.City = strings.TrimPrefix(data, "cashcity_")
		st.Step = stepCashPurpose
		b.replyWithKeyboard(chatID,
			"📝 Выберите назначение платежа (или введите свое):", purposeKeyboard(st.Cash.Type))
	case strings.HasPrefix(data, "cashpurpose_"):
		if st.Step != stepCashPurpose {
			return
		}
		st.Cash.Purpose = strings.TrimPrefix(data, "cashpurpose_")
		st.Step = stepCashAmount
		b.reply(chatID, "💵 Введите сумму:")
	case data == "cashconfirm_yes":
		b.commitCashEntry(ctx, userID, chatID, creator)
	case data == "cashconfirm_no":
		b.state.reset(userID)
		b.reply(chatID, "Операция отменена.")
	}
}

func (b *Bot) handleCashInput(_ context.Context, userID, chatID int64, text, _ string) {
	st := b.state.get(userID)

	switch st.Step {
	case stepCashPurpose:
		st.Cash.Purpose = text
		st.Step = stepCashAmount
		b.reply(chatID, "💵 Введите сумму:")
	case stepCashAmount:
		amount, err := parseAmount(text)
		if err != nil {
			b.reply(chatID, "❌ Сумма должна быть положительным числом. Попробуйте еще раз:")
			return
		}
		st.Cash.Amount = amount
		st.Step = stepCashNote
		b.reply(chatID, "📝 Введите примечание (или `-`, чтобы пропустить):")
	case stepCashNote:
		if text != "-" {
			st.Cash.Note = text
		}
		st.Step = stepCashConfirm
		b.replyWithKeyboard(chatID, cashDraftSummary(&st.Cash), confirmKeyboard("cashconfirm"))
	}
}

func cashDraftSummary(d *cashDraft) string {
	label := "➖ Расход"
	if d.Type == models.CashIncome {
		label = "➕ Приход"
	}
	note := d.Note
	if note == "" {
		note = "-"
	}
	return fmt.Sprintf(
		"Записать операцию?\n\n%s\n🏙️ Город: %s\n📝 Назначение: %s\n💵 Сумма: %s₽\n🗒 Примечание: %s",
		label, d.City, d.Purpose, formatMoney(d.Amount), note)
}

func (b *Bot) commitCashEntry(ctx context.Context, userID, chatID int64, creator string) {
	st := b.state.get(userID)
	if st.Step != stepCashConfirm {
		return
	}
	entry := &models.CashEntry{
		Type:           st.Cash.Type,
		Amount:         st.Cash.Amount,
		City:           st.Cash.City,
		PaymentPurpose: st.Cash.Purpose,
		Note:           st.Cash.Note,
		CreatedBy:      creator,
	}
	if _, err := b.db.AddCashEntry(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("cash entry failed")
		b.reply(chatID, "❌ Не удалось записать операцию")
		return
	}
	metrics.IncCashEntry(entry.Type)
	b.state.reset(userID)
	b.reply(chatID, "✅ Операция записана")
}

func (b *Bot) showBalance(ctx context.Context, chatID int64, cities []string) {
	var lines []string
	for _, city := range cities {
		balance, err := b.db.CashBalance(ctx, city)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("city", city).Msg("balance failed")
			b.reply(chatID, "❌ Не удалось получить баланс")
			return
		}
		lines = append(lines, fmt.Sprintf("🏙️ %s: *%s₽*", city, formatMoney(balance)))
	}
	b.reply(chatID, "💰 Баланс кассы:\n\n"+strings.Join(lines, "\n"))
}

func (b *Bot) handleHistoryPeriod(ctx context.Context, userID, chatID int64, kind string, cities []string) {
	if kind == "custom" {
		st := b.state.get(userID)
		st.Step = stepHistoryDate
		b.reply(chatID, "📅 Введите дату `ДД.ММ.ГГГГ` или период `ДД.ММ.ГГГГ-ДД.ММ.ГГГГ`:")
		return
	}
	from, to := periodRange(kind, time.Now())
	b.sendCashHistory(ctx, chatID, cities, from, to)
}

func (b *Bot) handleHistoryDate(ctx context.Context, userID, chatID int64, text string, cities []string) {
	from, to, err := parseDateRange(text, time.Local)
	if err != nil {
		b.reply(chatID, "❌ Неверный формат даты. Пример: `01.03.2026` или `01.03.2026-07.03.2026`")
		return
	}
	b.state.reset(userID)
	b.sendCashHistory(ctx, chatID, cities, from, to)
}

func (b *Bot) sendCashHistory(ctx context.Context, chatID int64, cities []string, from, to time.Time) {
	entries, err := b.db.CashHistory(ctx, cities, from, to)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("cash history failed")
		b.reply(chatID, "❌ Не удалось получить историю")
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "Операций за выбранный период нет")
		return
	}

	data, err := export.CashHistory(entries)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("history export failed")
		b.reply(chatID, "❌ Не удалось сформировать файл")
		return
	}
	name := fmt.Sprintf("cash_%s_%s.xlsx", from.Format("02.01.2006"), to.Add(-time.Second).Format("02.01.2006"))
	b.sendDocument(ctx, chatID, name, data,
		fmt.Sprintf("📊 История кассы: %d операций", len(entries)))
}
