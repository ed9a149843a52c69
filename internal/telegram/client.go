// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/tennisoracle/internal/models"
)

// StatusFunc reports service reachability for the /status command.
type StatusFunc func(ctx context.Context) (baseURL string, connected bool)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	status         StatusFunc
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SetStatusFunc enables the /status command.
func (c *Client) SetStatusFunc(fn StatusFunc) {
	c.status = fn
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var text string
	switch msg.Command() {
	case "ping":
		text = "Pong"
	case "status":
		if c.status == nil {
			return
		}
		baseURL, connected := c.status(ctx)
		text = formatStatus(baseURL, connected)
	default:
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	c.bot.Send(reply) //nolint:errcheck
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a refresh error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Prediction refresh failed*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Prediction service reachable again* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// Send sends a digest of the given predictions.
func (c *Client) Send(predictions []models.PredictionRecord) error {
	return c.sendMarkdownV2(formatDigest(predictions))
}

// formatDigest formats predictions into a Telegram MarkdownV2 message, grouped
// by tournament in first-seen order.
func formatDigest(predictions []models.PredictionRecord) string {
	var b strings.Builder
	b.WriteString("🎾 *New Match Predictions*\n\n")

	var order []string
	byTournament := make(map[string][]models.PredictionRecord)
	for _, p := range predictions {
		if _, seen := byTournament[p.Tournament]; !seen {
			order = append(order, p.Tournament)
		}
		byTournament[p.Tournament] = append(byTournament[p.Tournament], p)
	}

	for _, tournament := range order {
		fmt.Fprintf(&b, "🏆 *%s*\n", escapeMarkdownV2(tournament))
		for _, p := range byTournament[tournament] {
			band := p.Band()
			fmt.Fprintf(&b, "   %s %s vs %s\n", bandEmoji(band),
				escapeMarkdownV2(p.PlayerA), escapeMarkdownV2(p.PlayerB))
			fmt.Fprintf(&b, "      ⭐ %s \\(%s confidence %s\\)\n",
				escapeMarkdownV2(p.Favorite),
				band.Label(),
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", p.Confidence)))
			fmt.Fprintf(&b, "      odds %s / %s\n",
				escapeMarkdownV2(fmt.Sprintf("%.2f", p.OddsA)),
				escapeMarkdownV2(fmt.Sprintf("%.2f", p.OddsB)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatStatus(baseURL string, connected bool) string {
	if connected {
		return fmt.Sprintf("Prediction service %s is reachable", baseURL)
	}
	return fmt.Sprintf("Prediction service %s is NOT reachable", baseURL)
}

func bandEmoji(b models.ConfidenceBand) string {
	switch b {
	case models.BandHigh:
		return "🟢"
	case models.BandMedium:
		return "🟠"
	default:
		return "🔴"
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
