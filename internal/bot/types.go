package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"shopbot/internal/ai"
	"shopbot/internal/storage"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          *tgbotapi.BotAPI
	assistant    *ai.Assistant
	db           storage.Storage
	shopID       int64
	allowedUsers map[int64]bool
	logger       *zap.Logger
}

// Callback data prefixes for inline keyboard routing
const (
	callbackSelectPrefix     = "ai_select:"
	callbackCancel           = "ai_cancel"
	callbackBulkPricesOK     = "bulk_prices_confirm"
	callbackBulkPricesCancel = "bulk_prices_cancel"
	callbackBulkDeleteOK     = "bulk_delete_confirm"
	callbackBulkDeleteCancel = "bulk_delete_cancel"
)
