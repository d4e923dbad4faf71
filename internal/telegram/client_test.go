package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/powerpick/internal/models"
)

type fakeBot struct {
	failures int
	sent     []tgbotapi.MessageConfig
	attempts int
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return tgbotapi.Message{}, errors.New("telegram: Too Many Requests")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() { f.stopped = true }

type stubGenerator struct {
	batch *models.Batch
	err   error
}

func (s stubGenerator) Generate(context.Context) (*models.Batch, error) {
	return s.batch, s.err
}

func sampleBatch() *models.Batch {
	return &models.Batch{
		ID:          "3f2a-9c",
		GeneratedAt: time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC),
		Picks: []models.Pick{
			{Numbers: []int{6, 12, 19, 33, 47}, Special: 4},
			{Numbers: []int{8, 14, 21, 40, 55}, Special: 10},
		},
		Draws: 1200,
	}
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 77,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"2024-03-09 18:30:00", "2024\\-03\\-09 18:30:00"},
		{"a_b*c[d](e)!", "a\\_b\\*c\\[d\\]\\(e\\)\\!"},
		{"1.5 + 2 = 3.5", "1\\.5 \\+ 2 \\= 3\\.5"},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.in); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBatch(t *testing.T) {
	msg := formatBatch(sampleBatch())

	assert.Contains(t, msg, "1\\. `06 12 19 33 47`  🔴 *04*")
	assert.Contains(t, msg, "2\\. `08 14 21 40 55`  🔴 *10*")
	assert.Contains(t, msg, "2024\\-03\\-09 18:30:00")
	assert.Contains(t, msg, "3f2a\\-9c")
	assert.Contains(t, msg, "Based on 1200 past draws\\.")
}

func TestSendBatch_RetriesThenSucceeds(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c := newClient(bot, 42, 3, time.Millisecond)

	require.NoError(t, c.SendBatch(context.Background(), sampleBatch()))
	assert.Equal(t, 3, bot.attempts)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, bot.sent[0].ParseMode)
}

func TestSendBatch_GivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c := newClient(bot, 42, 2, time.Millisecond)

	err := c.SendBatch(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 2, bot.attempts)
}

func TestSendBatch_StopsRetryingOnCancel(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c := newClient(bot, 42, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err := c.SendBatch(ctx, sampleBatch())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, bot.attempts)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHandleUpdate(t *testing.T) {
	gen := stubGenerator{batch: sampleBatch()}

	t.Run("pick from configured chat", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot, 42, 1, time.Millisecond)
		c.handleUpdate(context.Background(), gen, commandUpdate(42, "/pick"))

		require.Len(t, bot.sent, 1)
		assert.Equal(t, 77, bot.sent[0].ReplyToMessageID)
		assert.Contains(t, bot.sent[0].Text, "`06 12 19 33 47`")
	})

	t.Run("other chat ignored", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot, 42, 1, time.Millisecond)
		c.handleUpdate(context.Background(), gen, commandUpdate(7, "/pick"))
		assert.Empty(t, bot.sent)
	})

	t.Run("unknown command ignored", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot, 42, 1, time.Millisecond)
		c.handleUpdate(context.Background(), gen, commandUpdate(42, "/weather"))
		assert.Empty(t, bot.sent)
	})

	t.Run("generation error reported", func(t *testing.T) {
		bot := &fakeBot{}
		c := newClient(bot, 42, 1, time.Millisecond)
		c.handleUpdate(context.Background(), stubGenerator{err: errors.New("history unavailable")}, commandUpdate(42, "/pick"))

		require.Len(t, bot.sent, 1)
		assert.Contains(t, bot.sent[0].Text, "history unavailable")
	})
}

func TestListenForCommands_StopsOnCancel(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 1)}
	c := newClient(bot, 42, 1, time.Millisecond)
	bot.updates <- commandUpdate(42, "/pick")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.ListenForCommands(ctx, stubGenerator{batch: sampleBatch()})
		close(done)
	}()

	require.Eventually(t, func() bool { return len(bot.updates) == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
	assert.True(t, bot.stopped)
	assert.Len(t, bot.sent, 1)
}
