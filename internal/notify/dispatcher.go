// Package notify pushes Telegram messages on behalf of the lifecycle
// controller and the webhook receiver. Every dispatch goes through one
// shared rate limiter so the bot stays under the Telegram send quota.
package notify

import (
	"context"
	"fmt"

	"callcentre-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Button is one inline keyboard button with callback data.
type Button struct {
	Text string
	Data string
}

// Telegram is the subset of the bot API client the dispatcher needs.
type Telegram interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Dispatcher sends and deletes messages and documents with rate limiting.
// Card replacement is delete-then-send via the stored card pointer.
type Dispatcher struct {
	tg      Telegram
	limiter *rate.Limiter
}

// New creates a dispatcher. perSecond should stay well under the global
// Telegram limit of ~30 messages per second.
func New(tg Telegram, perSecond float64, burst int) *Dispatcher {
	return &Dispatcher{
		tg:      tg,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func keyboard(buttons [][]Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, line := range buttons {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(line))
		for _, b := range line {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// Send delivers text to chatID with an optional inline keyboard and returns
// the sent message id.
func (d *Dispatcher) Send(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb := keyboard(buttons); kb != nil {
		msg.ReplyMarkup = kb
	}
	sent, err := d.tg.Send(msg)
	if err != nil {
		metrics.IncNotification("failed")
		return 0, fmt.Errorf("send to %d: %w", chatID, err)
	}
	metrics.IncNotification("sent")
	return sent.MessageID, nil
}

// Delete removes a message. Telegram refuses deletes of old messages, so
// callers treat failure as non-fatal.
func (d *Dispatcher) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if _, err := d.tg.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

// SendDocument delivers an in-memory file (xlsx exports).
func (d *Dispatcher) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := d.tg.Send(doc); err != nil {
		metrics.IncNotification("failed")
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	metrics.IncNotification("sent")
	return nil
}
