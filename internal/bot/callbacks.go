package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	// Answer the callback query to remove loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if b.api != nil {
		b.api.Request(callback)
	}

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	data := query.Data
	switch {
	case strings.HasPrefix(data, callbackSelectPrefix):
		b.handleSelectCallback(ctx, chatID, messageID, data)
	case data == callbackCancel:
		b.assistant.CancelPending(chatID)
		b.editMessage(chatID, messageID, "Cancelled.")
	case data == callbackBulkPricesOK:
		b.handleBulkPricesConfirm(ctx, chatID, messageID)
	case data == callbackBulkPricesCancel:
		b.assistant.CancelPending(chatID)
		b.editMessage(chatID, messageID, "Price update cancelled.")
	case data == callbackBulkDeleteOK:
		b.handleBulkDeleteConfirm(ctx, chatID, messageID)
	case data == callbackBulkDeleteCancel:
		b.assistant.CancelPending(chatID)
		b.editMessage(chatID, messageID, "Deletion cancelled.")
	}
}

// handleSelectCallback executes the deferred operation for the selected
// product
func (b *Bot) handleSelectCallback(ctx context.Context, chatID int64, messageID int, data string) {
	productID, ok := parseSelectCallback(data)
	if !ok {
		b.logger.Warn("Malformed select callback", zap.String("data", data))
		return
	}

	result := b.assistant.ResolveClarification(ctx, chatID, productID)
	b.editMessage(chatID, messageID, result.Message)
}

// handleBulkPricesConfirm runs the staged bulk repricing, streaming
// progress into the confirmation message
func (b *Bot) handleBulkPricesConfirm(ctx context.Context, chatID int64, messageID int) {
	b.editMessage(chatID, messageID, "Updating prices...")

	result := b.assistant.ConfirmBulkPriceUpdate(ctx, chatID, func(text string) {
		b.editMessage(chatID, messageID, text)
	})
	b.editMessage(chatID, messageID, result.Message)
}

// handleBulkDeleteConfirm runs the staged catalog wipe
func (b *Bot) handleBulkDeleteConfirm(ctx context.Context, chatID int64, messageID int) {
	b.editMessage(chatID, messageID, "Deleting products...")

	result := b.assistant.ConfirmBulkDeleteAll(ctx, chatID)
	b.editMessage(chatID, messageID, result.Message)
}
