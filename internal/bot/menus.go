package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Director menus.
var (
	mainMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 Заявки"),
			tgbotapi.NewKeyboardButton("💰 Касса"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📊 Отчеты"),
			tgbotapi.NewKeyboardButton("👥 Сотрудники"),
		),
	)

	ordersMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🆕 Новые"),
			tgbotapi.NewKeyboardButton("🔄 Модерны"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("⚙️ В работе"),
			tgbotapi.NewKeyboardButton("🔍 Поиск"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("⬅️ Назад"),
		),
	)

	cashMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("💰 Баланс"),
			tgbotapi.NewKeyboardButton("📊 История"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➖ Расход"),
			tgbotapi.NewKeyboardButton("➕ Приход"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("⬅️ Назад"),
		),
	)

	reportsMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🏙️ Отчет по городу"),
			tgbotapi.NewKeyboardButton("🔧 Отчет по мастерам"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("⬅️ Назад"),
		),
	)

	employeesMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 Список мастеров"),
			tgbotapi.NewKeyboardButton("🔍 Поиск мастера"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➕ Добавить мастера"),
			tgbotapi.NewKeyboardButton("⬅️ Назад"),
		),
	)
)

// Master menus.
var (
	masterMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 Мои заявки"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("💰 Сдача денег"),
			tgbotapi.NewKeyboardButton("📊 Моя статистика"),
		),
	)

	masterOrdersMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🆕 Новые заявки"),
			tgbotapi.NewKeyboardButton("🔧 В работе"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🔄 Модернизации"),
			tgbotapi.NewKeyboardButton("⬅️ Назад"),
		),
	)

	masterCashMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("💰 Баланс"),
			tgbotapi.NewKeyboardButton("📊 История"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➖ Расход"),
			tgbotapi.NewKeyboardButton("➕ Приход"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("⬅️ Назад"),
		),
	)
)

// periodKeyboard offers the standard report/history ranges.
func periodKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 День", prefix+"_day"),
			tgbotapi.NewInlineKeyboardButtonData("📅 Неделя", prefix+"_week"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Месяц", prefix+"_month"),
			tgbotapi.NewInlineKeyboardButtonData("📅 Своя дата", prefix+"_custom"),
		),
	)
}
