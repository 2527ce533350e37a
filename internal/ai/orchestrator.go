// Package ai implements the natural-language product-management
// pipeline: free text goes in, a validated catalog mutation (or a
// clarification / confirmation request) comes out.
package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"shopbot/internal/backend"
	"shopbot/internal/models"
)

// Backend is the slice of the commerce API the pipeline mutates through.
type Backend interface {
	ListProducts(ctx context.Context, shopID int64) ([]models.Product, error)
	CreateProduct(ctx context.Context, req backend.CreateProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID int64, update backend.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
	BulkDeleteAll(ctx context.Context, shopID int64) (int, error)
	BulkDeleteByIDs(ctx context.Context, shopID int64, productIDs []int64) (int, error)
}

// UsageRecorder persists per-command token usage and cost for analytics.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, rec models.UsageRecord) error
}

// ShopContext identifies the shop all commands act on.
type ShopContext struct {
	ShopID   int64
	ShopName string
}

// Assistant orchestrates the command pipeline: sanitize, prompt, LLM
// call, tool dispatch, session bookkeeping.
type Assistant struct {
	llm      *LLMClient
	backend  Backend
	usage    UsageRecorder
	sessions *Sessions
	shop     ShopContext
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssistant wires the pipeline together. usage may be nil when
// analytics are disabled.
func NewAssistant(llm *LLMClient, api Backend, usage UsageRecorder, shop ShopContext, logger *zap.Logger) *Assistant {
	return &Assistant{
		llm:      llm,
		backend:  api,
		usage:    usage,
		sessions: NewSessions(),
		shop:     shop,
		logger:   logger,
		now:      time.Now,
	}
}

// Session exposes the per-chat session, mainly for the transport layer's
// guards and cancellation.
func (a *Assistant) Session(chatID int64) *Session {
	return a.sessions.Get(chatID)
}

// ProcessCommand runs one natural-language command through the pipeline.
// The caller must hold the session's in-flight guard (BeginCommand).
func (a *Assistant) ProcessCommand(ctx context.Context, chatID int64, userCommand string) Result {
	if a.shop.ShopID == 0 || a.shop.ShopName == "" {
		return failure("Shop context is missing. Use the menu instead.")
	}

	if !a.llm.Available() {
		return Result{
			Success:        false,
			Message:        "AI is not available. Use the regular menu.",
			FallbackToMenu: true,
		}
	}

	command := SanitizeInput(userCommand)
	if command == "" || len([]rune(command)) < 2 {
		return failure("Empty command")
	}
	if IsNoise(command) {
		return Result{Silent: true}
	}

	products, err := a.backend.ListProducts(ctx, a.shop.ShopID)
	if err != nil {
		a.logger.Error("Failed to fetch products for AI command", zap.Error(err))
		return failure("Could not load the catalog. Try again.")
	}

	session := a.sessions.Get(chatID)
	systemPrompt := BuildSystemPrompt(a.shop.ShopName, products)
	history := session.History(a.now())

	commandID := uuid.NewString()
	start := a.now()
	resp, err := a.llm.Chat(ctx, systemPrompt, command, ToolDefinitions(), history)
	latency := time.Since(start)

	if err != nil {
		return a.llmFailure(err, commandID)
	}

	if len(resp.Choices) == 0 {
		return failure("AI returned no response. Try again.")
	}
	choice := resp.Choices[0]

	result := Result{Success: true, Message: choice.Message.Content}

	if choice.FinishReason == openai.FinishReasonToolCalls && len(choice.Message.ToolCalls) > 0 {
		// Only the first tool call is honored: one mutation per turn.
		if discarded := len(choice.Message.ToolCalls) - 1; discarded > 0 {
			a.logger.Warn("Discarding extra tool calls",
				zap.Int("discarded", discarded),
				zap.String("command_id", commandID),
			)
		}
		toolCall := choice.Message.ToolCalls[0]
		result = a.dispatch(ctx, session, toolCall.Function.Name, []byte(toolCall.Function.Arguments), products)
	} else if result.Message == "" {
		result.Message = "Command processed."
	}

	if result.Message != "" {
		session.RememberExchange(a.now(), command, result.Message)
	}

	a.recordUsage(ctx, commandID, chatID, result, resp, latency)
	return result
}

// dispatch routes a tool call to its execution handler. The switch is
// exhaustive over the Operation set; adding a tool means adding an arm
// here and a definition in ToolDefinitions.
func (a *Assistant) dispatch(ctx context.Context, session *Session, functionName string, rawArgs []byte, products []models.Product) Result {
	op, ok := ParseOperation(functionName)
	if !ok {
		a.logger.Warn("LLM requested unknown operation", zap.String("function", functionName))
		return failure("Unknown operation: " + functionName)
	}

	a.logger.Info("Executing AI tool call",
		zap.String("operation", string(op)),
		zap.ByteString("arguments", rawArgs),
	)

	switch op {
	case OpAddProduct:
		var args AddProductArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleAddProduct(ctx, args)

	case OpBulkAddProducts:
		var args BulkAddProductsArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleBulkAddProducts(ctx, args)

	case OpDeleteProduct:
		var args DeleteProductArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleDeleteProduct(ctx, session, args, products)

	case OpListProducts:
		return a.handleListProducts(products)

	case OpSearchProduct:
		var args SearchProductArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleSearchProduct(args, products)

	case OpUpdateProduct:
		var args UpdateProductArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleUpdateProduct(ctx, session, args, products)

	case OpBulkDeleteAll:
		return a.handleBulkDeleteAll(ctx, session, products)

	case OpBulkDeleteByNames:
		var args BulkDeleteByNamesArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleBulkDeleteByNames(ctx, args, products)

	case OpRecordSale:
		var args RecordSaleArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleRecordSale(ctx, session, args, products)

	case OpGetProductInfo:
		var args GetProductInfoArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleGetProductInfo(session, args, products)

	case OpBulkUpdatePrices:
		var args BulkUpdatePricesArgs
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return failure("Could not parse the command arguments.")
		}
		return a.handleBulkUpdatePrices(session, args, products)
	}

	return failure("Unknown operation: " + functionName)
}

// llmFailure maps provider errors to user-facing results.
func (a *Assistant) llmFailure(err error, commandID string) Result {
	status := ErrorStatusCode(err)
	a.logger.Error("LLM call failed",
		zap.Error(err),
		zap.Int("status", status),
		zap.String("command_id", commandID),
	)

	switch {
	case status == 401:
		return Result{
			Success:        false,
			Message:        "AI authorization failed. Check the configuration.",
			FallbackToMenu: true,
		}
	case status == 503:
		return Result{
			Success: false,
			Message: "AI is overloaded. Try again in a minute.",
			Retry:   true,
		}
	default:
		return Result{
			Success:        false,
			Message:        "AI error. Use the regular menu.",
			FallbackToMenu: true,
		}
	}
}

// recordUsage persists token usage and cost for one command. Analytics
// failures are logged and swallowed: they must not break the command.
func (a *Assistant) recordUsage(ctx context.Context, commandID string, chatID int64, result Result, resp *openai.ChatCompletionResponse, latency time.Duration) {
	if a.usage == nil || resp == nil {
		return
	}

	cacheHit := cachedTokens(resp.Usage)
	finishReason := ""
	if len(resp.Choices) > 0 {
		finishReason = string(resp.Choices[0].FinishReason)
	}

	rec := models.UsageRecord{
		CommandID:        commandID,
		ChatID:           chatID,
		ShopID:           a.shop.ShopID,
		Operation:        string(result.Operation),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		CacheHitTokens:   cacheHit,
		CacheMissTokens:  resp.Usage.PromptTokens - cacheHit,
		CostUSD:          CalculateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, cacheHit > 0),
		LatencyMs:        latency.Milliseconds(),
		FinishReason:     finishReason,
		Success:          result.Success,
		CreatedAt:        a.now(),
	}

	if err := a.usage.RecordUsage(ctx, rec); err != nil {
		a.logger.Warn("Failed to record AI usage", zap.Error(err))
	}
}
