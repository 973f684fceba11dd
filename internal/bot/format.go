package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const dateLayout = "02.01.2006"

// periodRange maps a period button to [from, to). "day" is the current
// calendar day, "week" and "month" count back from now.
func periodRange(kind string, now time.Time) (time.Time, time.Time) {
	end := now
	switch kind {
	case "day":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, start.Add(24 * time.Hour)
	case "week":
		return end.AddDate(0, 0, -7), end
	case "month":
		return end.AddDate(0, -1, 0), end
	}
	return end.AddDate(0, 0, -1), end
}

// parseDateRange reads "ДД.ММ.ГГГГ" (one day) or
// "ДД.ММ.ГГГГ-ДД.ММ.ГГГГ" (inclusive range).
func parseDateRange(text string, loc *time.Location) (time.Time, time.Time, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, "-", 2)

	from, err := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", parts[0], err)
	}
	if len(parts) == 1 {
		return from, from.Add(24 * time.Hour), nil
	}

	until, err := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[1]), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", parts[1], err)
	}
	if until.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("range %q ends before it starts", text)
	}
	return from, until.Add(24 * time.Hour), nil
}

// parseAmount reads a positive money amount, tolerating a comma separator.
func parseAmount(text string) (float64, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", text, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("amount %v is not positive", v)
	}
	return v, nil
}

// parseSettlement reads the "итог расход" pair, e.g. "10000 1000".
func parseSettlement(text string) (gross, expenditure float64, err error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two numbers, got %d", len(fields))
	}
	gross, err = strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gross %q: %w", fields[0], err)
	}
	expenditure, err = strconv.ParseFloat(strings.ReplaceAll(fields[1], ",", "."), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse expenditure %q: %w", fields[1], err)
	}
	if gross < 0 || expenditure < 0 {
		return 0, 0, fmt.Errorf("negative settlement values")
	}
	return gross, expenditure, nil
}

func formatMoney(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// cityKeyboard renders one button per city with the given callback prefix.
func cityKeyboard(cities []string, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cities))
	for _, city := range cities {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(city, prefix+"_"+city),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// confirmKeyboard is a yes/no pair with the given callback prefix.
func confirmKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", prefix+"_yes"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", prefix+"_no"),
		),
	)
}
