package lifecycle

import (
	"fmt"
	"strings"

	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "=", "\\=",
	"|", "\\|", "{", "\\{", "}", "\\}", "!", "\\!",
)

// EscapeMarkdown shields user-entered text from the Telegram Markdown parser.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// CardText renders the order card body. masterName may be empty for
// unassigned orders.
func CardText(o *models.Order, masterName string) string {
	avito := o.AvitoName
	if avito == "" {
		avito = "Не указано"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *№%d* | %s\n\n", o.ID, EscapeMarkdown(string(o.Status)))
	fmt.Fprintf(&b, "🏢 *РК:* %s\n", EscapeMarkdown(o.RK))
	fmt.Fprintf(&b, "🏙️ *Город:* %s\n", EscapeMarkdown(o.City))
	fmt.Fprintf(&b, "👨‍🔧 *Имя мастера:* %s\n", EscapeMarkdown(avito))
	fmt.Fprintf(&b, "📝 *Тип заявки:* %s\n\n", EscapeMarkdown(o.TypeOrder))
	fmt.Fprintf(&b, "👤 *Имя клиента:* %s\n", EscapeMarkdown(o.ClientName))
	fmt.Fprintf(&b, "📞 *Телефон:* `%s`\n", EscapeMarkdown(o.Phone))
	fmt.Fprintf(&b, "📍 *Адрес:* %s\n\n", EscapeMarkdown(o.Address))
	fmt.Fprintf(&b, "🔧 *Тип техники:* %s\n", EscapeMarkdown(o.TypeEquipment))
	fmt.Fprintf(&b, "⚠️ *Проблема:* %s\n\n", EscapeMarkdown(o.Problem))
	fmt.Fprintf(&b, "📅 *Дата встречи:* %s %s\n",
		o.DateMeeting.Format("02.01.2006"), o.DateMeeting.Format("15:04"))
	if masterName != "" {
		fmt.Fprintf(&b, "\n👨‍🔧 *Назначен мастер:* %s", EscapeMarkdown(masterName))
	}
	return b.String()
}

// SettledCardText is the final card with the settlement breakdown.
func SettledCardText(o *models.Order, masterName string) string {
	text := CardText(o, masterName)
	if o.Result == nil || o.Expenditure == nil || o.Clean == nil || o.MasterChange == nil {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	fmt.Fprintf(&b, "\n💰 *Итог:* %s\n", formatMoney(*o.Result))
	fmt.Fprintf(&b, "💸 *Расход:* %s\n", formatMoney(*o.Expenditure))
	fmt.Fprintf(&b, "💵 *Чистыми:* %s\n\n", formatMoney(*o.Clean))
	fmt.Fprintf(&b, "💼 *Сдача мастера:* %s", formatMoney(*o.MasterChange))
	return b.String()
}

func formatMoney(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Callback data prefixes for the master card buttons. The bot layer parses
// these back with ParseCallback.
const (
	ActionAccept   = "accept"
	ActionReject   = "reject"
	ActionEnRoute  = "on_way"
	ActionInWork   = "in_work"
	ActionReady    = "ready"
	ActionRefuse   = "refuse"
	ActionModern   = "modern"
	ActionNotOrder = "not_order"
)

func cb(action string, orderID int64) string {
	return fmt.Sprintf("order_%s_%d", action, orderID)
}

// ParseCallback splits callback data produced by the card buttons. ok is
// false for foreign callback data.
func ParseCallback(data string) (action string, orderID int64, ok bool) {
	rest, found := strings.CutPrefix(data, "order_")
	if !found {
		return "", 0, false
	}
	i := strings.LastIndex(rest, "_")
	if i < 1 {
		return "", 0, false
	}
	if _, err := fmt.Sscanf(rest[i+1:], "%d", &orderID); err != nil {
		return "", 0, false
	}
	return rest[:i], orderID, true
}

// MasterButtons returns the action keyboard for the master's card in the
// order's current status. Terminal orders get no buttons.
func MasterButtons(o *models.Order) [][]notify.Button {
	switch o.Status {
	case models.StatusWaiting:
		return [][]notify.Button{
			{{Text: "✅ Принять заявку", Data: cb(ActionAccept, o.ID)}},
			{{Text: "❌ Отклонить заявку", Data: cb(ActionReject, o.ID)}},
		}
	case models.StatusAccepted:
		return [][]notify.Button{
			{{Text: "🚗 В пути", Data: cb(ActionEnRoute, o.ID)}},
		}
	case models.StatusEnRoute:
		return [][]notify.Button{
			{{Text: "🔧 В работе", Data: cb(ActionInWork, o.ID)}},
		}
	case models.StatusInProgress:
		return [][]notify.Button{
			{{Text: "✅ Готово", Data: cb(ActionReady, o.ID)}},
			{{Text: "❌ Отказ", Data: cb(ActionRefuse, o.ID)}},
			{{Text: "🔄 Модерн", Data: cb(ActionModern, o.ID)}},
			{{Text: "🚫 Незаказ", Data: cb(ActionNotOrder, o.ID)}},
		}
	case models.StatusModern:
		return [][]notify.Button{
			{{Text: "✅ Готово", Data: cb(ActionReady, o.ID)}},
			{{Text: "❌ Отказ", Data: cb(ActionRefuse, o.ID)}},
		}
	}
	return nil
}
