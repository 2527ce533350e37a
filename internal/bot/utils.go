package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendMessage sends a message, tolerating a nil API for tests
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Error(err))
	}
}

// sendTyping shows the "typing..." indicator while an AI command runs
func (b *Bot) sendTyping(chatID int64) {
	if b.api == nil {
		return // For testing
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("Failed to send typing action", zap.Error(err))
	}
}

// editMessage replaces the text of an already sent message and drops its
// inline keyboard
func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	if b.api == nil {
		return // For testing
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message", zap.Error(err))
	}
}
