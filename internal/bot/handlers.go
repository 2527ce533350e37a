package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"shopbot/internal/ai"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			msg := tgbotapi.NewMessage(message.Chat.ID, "An error occurred while processing your request. Please try again.")
			b.sendMessage(msg)
		}
	}()

	ctx := context.Background()

	// Handle commands
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(message)
		case "cancel":
			b.handleCancel(message)
		case "stats":
			b.handleStats(ctx, message)
		default:
			msg := tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /start to see available commands.")
			b.sendMessage(msg)
		}
		return
	}

	// Everything else is a natural-language product command
	b.handleAICommand(ctx, message)
}

// handleAICommand runs one free-text command through the AI pipeline
func (b *Bot) handleAICommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	session := b.assistant.Session(chatID)

	switch session.BeginCommand(time.Now()) {
	case ai.BeginBusy:
		msg := tgbotapi.NewMessage(chatID, "The previous command is still processing. Please wait.")
		b.sendMessage(msg)
		return
	case ai.BeginRateLimited:
		msg := tgbotapi.NewMessage(chatID, "Too many commands. Please wait a minute and try again.")
		b.sendMessage(msg)
		return
	}
	defer session.EndCommand()

	b.sendTyping(chatID)

	result := b.assistant.ProcessCommand(ctx, chatID, message.Text)
	b.renderResult(chatID, result)
}

// renderResult turns a pipeline result into Telegram messages and
// keyboards
func (b *Bot) renderResult(chatID int64, result ai.Result) {
	if result.Silent {
		return
	}
	if result.Message == "" {
		return
	}

	msg := tgbotapi.NewMessage(chatID, result.Message)

	switch {
	case result.NeedsClarification:
		msg.ReplyMarkup = clarificationKeyboard(result.Options)
	case result.NeedsConfirmation:
		msg.ReplyMarkup = confirmationKeyboard(result.Operation)
	}

	b.sendMessage(msg)
}

// clarificationKeyboard builds one button per candidate product plus a
// cancel row
func clarificationKeyboard(options []ai.ClarifyOption) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options)+1)
	for _, opt := range options {
		label := fmt.Sprintf("%s ($%.2f)", opt.Name, opt.Price)
		data := fmt.Sprintf("%s%d", callbackSelectPrefix, opt.ID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackCancel),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// confirmationKeyboard builds confirm/cancel buttons for a staged bulk
// operation
func confirmationKeyboard(operation ai.Operation) tgbotapi.InlineKeyboardMarkup {
	confirm, cancel := callbackBulkPricesOK, callbackBulkPricesCancel
	if operation == ai.OpBulkDeleteAll {
		confirm, cancel = callbackBulkDeleteOK, callbackBulkDeleteCancel
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", confirm),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cancel),
		),
	)
}

// parseSelectCallback extracts the product id from ai_select callback data
func parseSelectCallback(data string) (int64, bool) {
	idStr, ok := strings.CutPrefix(data, callbackSelectPrefix)
	if !ok {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
