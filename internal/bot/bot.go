// Package bot is the Telegram surface: it resolves who is talking, keeps
// per-user conversation state and translates menu presses into lifecycle,
// cash and report operations.
package bot

import (
	"context"
	"fmt"
	"strings"

	"callcentre-bot/internal/db"
	"callcentre-bot/internal/lifecycle"
	"callcentre-bot/internal/models"
	"callcentre-bot/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

const listLimit = 50

// Bot wires the Telegram update loop to the domain services.
type Bot struct {
	db         storage
	orders     *lifecycle.Service
	tg         telegramClient
	dispatcher *notify.Dispatcher
	state      *stateStore
	pageSize   int
	logger     *zerolog.Logger
}

// New builds the bot around an authorized API client. The client is shared
// with the notification dispatcher so both sides use one Telegram session.
func New(
	api *tgbotapi.BotAPI,
	database *db.DB,
	orders *lifecycle.Service,
	dispatcher *notify.Dispatcher,
	pageSize int,
	logger *zerolog.Logger,
) (*Bot, error) {
	return newBot(&realTelegramClient{api: api}, database, orders, dispatcher, pageSize, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(
	tg telegramClient,
	database storage,
	orders *lifecycle.Service,
	dispatcher *notify.Dispatcher,
	pageSize int,
	logger *zerolog.Logger,
) (*Bot, error) {
	return newBot(tg, database, orders, dispatcher, pageSize, logger)
}

func newBot(
	tg telegramClient,
	database storage,
	orders *lifecycle.Service,
	dispatcher *notify.Dispatcher,
	pageSize int,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Bot{
		db:         database,
		orders:     orders,
		tg:         tg,
		dispatcher: dispatcher,
		state:      newStateStore(),
		pageSize:   pageSize,
		logger:     logger,
	}, nil
}

// Start begins polling updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)

	// Group chats get the /id diagnostic only. Everything else is a
	// private-chat conversation.
	if msg.Chat.Type != "private" {
		if strings.HasPrefix(text, "/id") {
			b.reply(msg.Chat.ID, fmt.Sprintf("ID этого чата: `%d`", msg.Chat.ID))
		}
		return
	}

	act, err := b.resolveActor(ctx, msg.From.ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", msg.From.ID).Msg("auth lookup failed")
		b.reply(msg.Chat.ID, "❌ Ошибка авторизации, попробуйте позже")
		return
	}
	if act == nil {
		b.reply(msg.Chat.ID, "⛔ У вас нет доступа к боту")
		return
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		b.state.reset(msg.From.ID)
		b.sendMainMenu(msg.Chat.ID, act)
		return
	case text == "/id":
		b.reply(msg.Chat.ID, fmt.Sprintf("ID этого чата: `%d`", msg.Chat.ID))
		return
	case strings.HasPrefix(text, "/cancel"), text == "❌ Отмена":
		b.state.reset(msg.From.ID)
		b.reply(msg.Chat.ID, "Операция отменена.")
		b.sendMainMenu(msg.Chat.ID, act)
		return
	}

	if act.director != nil {
		b.handleDirectorMessage(ctx, msg, act.director, text)
		return
	}
	b.handleMasterMessage(ctx, msg, act.master, text)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	_ = b.answerCallback(cq.ID)
	data := cq.Data

	// Lifecycle buttons keep working when a card was forwarded into a group
	// chat, so they are resolved before the private-chat gate.
	if action, orderID, ok := lifecycle.ParseCallback(data); ok {
		b.handleOrderCallback(ctx, cq, action, orderID)
		return
	}

	if cq.Message.Chat.Type != "private" {
		return
	}

	act, err := b.resolveActor(ctx, cq.From.ID)
	if err != nil || act == nil {
		return
	}
	if act.director != nil {
		b.handleDirectorCallback(ctx, cq, act.director, data)
		return
	}
	b.handleMasterCallback(ctx, cq, act.master, data)
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, _ = b.tg.Send(msg)
}

func (b *Bot) replyPlain(chatID int64, text string) {
	_, _ = b.tg.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	_, _ = b.tg.Send(msg)
}

func (b *Bot) replyWarnings(chatID int64, warnings []string) {
	for _, w := range warnings {
		b.reply(chatID, "⚠️ "+w)
	}
}

func (b *Bot) sendMainMenu(chatID int64, act *actor) {
	if act.director != nil {
		b.replyWithKeyboard(chatID, "Выберите действие:", mainMenu)
		return
	}
	b.replyWithKeyboard(chatID, "Выберите действие:", masterMenu)
}

// sendDocument ships an export through the dispatcher so file uploads share
// the notification rate limiter.
func (b *Bot) sendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) {
	if err := b.dispatcher.SendDocument(ctx, chatID, name, data, caption); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("name", name).Msg("document not delivered")
	}
}

// orderButtons renders an order list as one button per order.
func orderButtons(orders []models.Order) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(orders))
	for _, o := range orders {
		label := fmt.Sprintf("№%d | %s | %s", o.ID, o.City, o.DateMeeting.Format("02.01 15:04"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("view_%d", o.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
