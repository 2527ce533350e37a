package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleStart shows welcome message and usage examples
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to the Shop Assistant Bot! 🛍

Just write what you want to do with your products, for example:
- add iPhone 15 for $999, 5 in stock
- change the Beanie price to $12
- sold 2 mugs
- how many T-shirts are left?
- 10% discount on everything
- delete the old poster

Commands:
/stats - AI usage statistics
/cancel - Cancel the pending operation`

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	b.sendMessage(msg)
}

// handleCancel drops any pending clarification or confirmation
func (b *Bot) handleCancel(message *tgbotapi.Message) {
	b.assistant.CancelPending(message.Chat.ID)
	msg := tgbotapi.NewMessage(message.Chat.ID, "Cancelled. Nothing is pending.")
	b.sendMessage(msg)
}

// handleStats shows AI usage statistics for today and the last 30 days
func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	if b.db == nil {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Usage analytics are disabled.")
		b.sendMessage(msg)
		return
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	daySummary, err := b.db.GetUsageSummary(ctx, b.shopID, today)
	if err != nil {
		b.logger.Error("Failed to get daily usage summary", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Could not load statistics. Try again.")
		b.sendMessage(msg)
		return
	}

	monthSummary, err := b.db.GetUsageSummary(ctx, b.shopID, now.AddDate(0, 0, -30))
	if err != nil {
		b.logger.Error("Failed to get monthly usage summary", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Could not load statistics. Try again.")
		b.sendMessage(msg)
		return
	}

	text := fmt.Sprintf(`📊 AI usage

Today:
- Commands: %d
- Tokens: %d
- Cost: $%.4f

Last 30 days:
- Commands: %d
- Tokens: %d
- Cost: $%.4f`,
		daySummary.Commands, daySummary.TotalTokens, daySummary.TotalCostUSD,
		monthSummary.Commands, monthSummary.TotalTokens, monthSummary.TotalCostUSD)

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	b.sendMessage(msg)
}
