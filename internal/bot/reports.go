package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"callcentre-bot/internal/export"

	"github.com/rs/zerolog"
)

func (b *Bot) handleReportPeriod(ctx context.Context, userID, chatID int64, kind, period string, cities []string) {
	if period == "custom" {
		st := b.state.get(userID)
		st.Step = stepReportDate
		st.ReportKind = kind
		b.reply(chatID, "📅 Введите дату `ДД.ММ.ГГГГ` или период `ДД.ММ.ГГГГ-ДД.ММ.ГГГГ`:")
		return
	}
	from, to := periodRange(period, time.Now())
	b.sendReport(ctx, chatID, kind, cities, from, to)
}

func (b *Bot) handleReportDate(ctx context.Context, userID, chatID int64, text string, cities []string) {
	st := b.state.get(userID)
	from, to, err := parseDateRange(text, time.Local)
	if err != nil {
		b.reply(chatID, "❌ Неверный формат даты. Пример: `01.03.2026` или `01.03.2026-07.03.2026`")
		return
	}
	kind := st.ReportKind
	b.state.reset(userID)
	b.sendReport(ctx, chatID, kind, cities, from, to)
}

func (b *Bot) sendReport(ctx context.Context, chatID int64, kind string, cities []string, from, to time.Time) {
	if kind == "masters" {
		b.sendMastersReport(ctx, chatID, cities, from, to)
		return
	}
	b.sendCityReport(ctx, chatID, cities, from, to)
}

func (b *Bot) sendCityReport(ctx context.Context, chatID int64, cities []string, from, to time.Time) {
	reports, err := b.db.ReportByCity(ctx, cities, from, to)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("city report failed")
		b.reply(chatID, "❌ Не удалось построить отчет")
		return
	}
	if len(reports) == 0 {
		b.reply(chatID, "Данных за выбранный период нет")
		return
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("🏙️ *Отчет по городам* %s - %s\n",
		from.Format("02.01.2006"), to.Add(-time.Second).Format("02.01.2006")))
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf(
			"*%s*\n📦 Всего: %d | ✅ Готово: %d | ❌ Отказ: %d | 🔄 Модерн: %d\n💵 Оборот: %s₽ | 🧾 Средний чек: %s₽ | 💼 Сдача: %s₽\n",
			r.City, r.Total, r.Done, r.Refused, r.Modern,
			formatMoney(r.Turnover), formatMoney(r.AvgCheck()), formatMoney(r.Payroll)))
	}
	b.reply(chatID, strings.Join(lines, "\n"))

	data, err := export.CityReports(reports)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("city report export failed")
		return
	}
	b.sendDocument(ctx, chatID, fmt.Sprintf("report_city_%s.xlsx", from.Format("02.01.2006")),
		data, "🏙️ Отчет по городам")
}

func (b *Bot) sendMastersReport(ctx context.Context, chatID int64, cities []string, from, to time.Time) {
	reports, err := b.db.ReportByMasters(ctx, cities, from, to)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("masters report failed")
		b.reply(chatID, "❌ Не удалось построить отчет")
		return
	}
	if len(reports) == 0 {
		b.reply(chatID, "Данных за выбранный период нет")
		return
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("🔧 *Отчет по мастерам* %s - %s\n",
		from.Format("02.01.2006"), to.Add(-time.Second).Format("02.01.2006")))
	for _, r := range reports {
		lines = append(lines, fmt.Sprintf(
			"*%s*: ✅ %d | ❌ %d | 💵 %s₽ | 💼 %s₽",
			r.Name, r.Done, r.Refused, formatMoney(r.Turnover), formatMoney(r.Payroll)))
	}
	b.reply(chatID, strings.Join(lines, "\n"))

	data, err := export.MasterReports(reports)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("masters report export failed")
		return
	}
	b.sendDocument(ctx, chatID, fmt.Sprintf("report_masters_%s.xlsx", from.Format("02.01.2006")),
		data, "🔧 Отчет по мастерам")
}
