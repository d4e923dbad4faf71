// Package telegram delivers pick batches through the Telegram Bot API.
//
// The client formats a batch as a MarkdownV2 message and sends it with a
// linear retry. When the command listener is running, members of the
// configured chat can request a fresh batch with /pick.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/powerpick/internal/logger"
	"github.com/rewired-gh/powerpick/internal/models"
)

// PickGenerator produces a batch of picks per call.
type PickGenerator interface {
	Generate(ctx context.Context) (*models.Batch, error)
}

// botAPI is the part of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client handles Telegram notifications
type Client struct {
	bot            botAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot botAPI, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// SendBatch posts the batch to the configured chat. Retries stop early when ctx is done.
func (c *Client) SendBatch(ctx context.Context, batch *models.Batch) error {
	return c.send(ctx, tgbotapi.NewMessage(c.chatID, formatBatch(batch)))
}

func (c *Client) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("Telegram send attempt %d/%d failed: %v", i+1, c.maxRetries, err)
		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("message not sent after %d attempts: %w", i+1, ctx.Err())
			case <-time.After(c.retryDelayBase * time.Duration(i+1)):
			}
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// ListenForCommands long-polls for updates until ctx is cancelled and answers
// /pick with a freshly generated batch. Messages from other chats are ignored.
func (c *Client) ListenForCommands(ctx context.Context, gen PickGenerator) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	logger.Info("Listening for Telegram commands in chat %d", c.chatID)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Telegram command listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handleUpdate(ctx, gen, update)
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, gen PickGenerator, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != c.chatID || !msg.IsCommand() {
		return
	}

	var text string
	switch msg.Command() {
	case "pick":
		batch, err := gen.Generate(ctx)
		if err != nil {
			logger.Error("Pick generation for Telegram failed: %v", err)
			text = "⚠️ " + escapeMarkdownV2("Could not generate picks: "+err.Error())
		} else {
			text = formatBatch(batch)
		}
	case "start", "help":
		text = escapeMarkdownV2("Send /pick for five fresh Powerball picks.")
	default:
		return
	}

	reply := tgbotapi.NewMessage(c.chatID, text)
	reply.ReplyToMessageID = msg.MessageID
	if err := c.send(ctx, reply); err != nil {
		logger.Error("Failed to answer /%s: %v", msg.Command(), err)
	}
}

// formatBatch renders a batch as a MarkdownV2 message.
func formatBatch(batch *models.Batch) string {
	var b strings.Builder
	b.WriteString("🎱 *Powerball lucky picks*\n\n")

	for i, p := range batch.Picks {
		nums := make([]string, len(p.Numbers))
		for j, n := range p.Numbers {
			nums[j] = fmt.Sprintf("%02d", n)
		}
		fmt.Fprintf(&b, "%d\\. `%s`  🔴 *%02d*\n", i+1, strings.Join(nums, " "), p.Special)
	}

	fmt.Fprintf(&b, "\n📅 %s\n", escapeMarkdownV2(batch.GeneratedAt.Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "🆔 %s", escapeMarkdownV2(batch.ID))
	if batch.Draws > 0 {
		fmt.Fprintf(&b, "\n📊 %s", escapeMarkdownV2(fmt.Sprintf("Based on %d past draws.", batch.Draws)))
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// _ * [ ] ( ) ~ ` > # + - = | { } . ! and the escape character itself
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
