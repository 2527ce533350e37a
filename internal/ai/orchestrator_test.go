package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopbot/internal/models"
)

type captureRecorder struct {
	records []models.UsageRecord
}

func (c *captureRecorder) RecordUsage(ctx context.Context, rec models.UsageRecord) error {
	c.records = append(c.records, rec)
	return nil
}

// newPipelineAssistant wires an Assistant against a canned LLM endpoint
func newPipelineAssistant(t *testing.T, be Backend, recorder UsageRecorder, handler http.HandlerFunc) *Assistant {
	t.Helper()
	llm, _ := newLLMServer(t, handler)
	return NewAssistant(llm, be, recorder, ShopContext{ShopID: 1, ShopName: "Test Shop"}, zap.NewNop())
}

func toolCallHandler(t *testing.T, name, arguments string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("", []openai.ToolCall{{
			ID:       "call-1",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: arguments},
		}}))
	}
}

func TestProcessCommand_FallsBackWhenUnconfigured(t *testing.T) {
	be := newStubBackend()
	a := newTestAssistant(be) // LLM has no API key

	result := a.ProcessCommand(context.Background(), 1, "add iPhone for $999")
	assert.False(t, result.Success)
	assert.True(t, result.FallbackToMenu)
}

func TestProcessCommand_IgnoresNoise(t *testing.T) {
	be := newStubBackend()
	called := false
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	result := a.ProcessCommand(context.Background(), 1, "привет")
	assert.True(t, result.Silent)
	assert.False(t, called, "noise must not reach the LLM")
}

func TestProcessCommand_RejectsEmptyInput(t *testing.T) {
	be := newStubBackend()
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty input must not reach the LLM")
	})

	result := a.ProcessCommand(context.Background(), 1, "   ")
	assert.False(t, result.Success)
}

func TestProcessCommand_ExecutesToolCall(t *testing.T) {
	be := newStubBackend()
	recorder := &captureRecorder{}
	a := newPipelineAssistant(t, be, recorder,
		toolCallHandler(t, "addProduct", `{"name":"iPhone 15","price":999,"stock":5}`))

	result := a.ProcessCommand(context.Background(), 1, "add iPhone 15 for $999, 5 in stock")
	require.True(t, result.Success)
	assert.Equal(t, OpAddProduct, result.Operation)
	require.Len(t, be.created, 1)
	assert.Equal(t, "iPhone 15", be.created[0].Name)

	// Usage accounting is persisted per command
	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	assert.NotEmpty(t, rec.CommandID)
	assert.Equal(t, int64(1), rec.ChatID)
	assert.Equal(t, "addProduct", rec.Operation)
	assert.Equal(t, 1200, rec.PromptTokens)
	assert.Equal(t, 1000, rec.CacheHitTokens)
	assert.Equal(t, 200, rec.CacheMissTokens)
	assert.Greater(t, rec.CostUSD, 0.0)
	assert.True(t, rec.Success)
}

func TestProcessCommand_FreeTextReply(t *testing.T) {
	be := newStubBackend()
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("Which product and at what price?", nil))
	})

	result := a.ProcessCommand(context.Background(), 1, "add the green one")
	require.True(t, result.Success)
	assert.Equal(t, "Which product and at what price?", result.Message)
	assert.Empty(t, result.Operation)
}

func TestProcessCommand_RemembersExchanges(t *testing.T) {
	be := newStubBackend()
	var lastReq openai.ChatCompletionRequest
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))
		json.NewEncoder(w).Encode(chatResponse("Noted.", nil))
	})

	ctx := context.Background()
	a.ProcessCommand(ctx, 1, "first command here")
	a.ProcessCommand(ctx, 1, "second command here")

	// Second request carries the first exchange: system + 2 history + user
	require.Len(t, lastReq.Messages, 4)
	assert.Equal(t, "first command here", lastReq.Messages[1].Content)
	assert.Equal(t, "Noted.", lastReq.Messages[2].Content)
	assert.Equal(t, "second command here", lastReq.Messages[3].Content)
}

func TestProcessCommand_OnlyFirstToolCallExecutes(t *testing.T) {
	be := newStubBackend()
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("", []openai.ToolCall{
			{
				ID:   "call-1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "addProduct",
					Arguments: `{"name":"First Product","price":10,"stock":1}`,
				},
			},
			{
				ID:   "call-2",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "addProduct",
					Arguments: `{"name":"Second Product","price":20,"stock":1}`,
				},
			},
		}))
	})

	result := a.ProcessCommand(context.Background(), 1, "add two products")
	require.True(t, result.Success)
	require.Len(t, be.created, 1, "only the first tool call may execute")
	assert.Equal(t, "First Product", be.created[0].Name)
}

func TestProcessCommand_UnknownOperationFails(t *testing.T) {
	be := newStubBackend()
	a := newPipelineAssistant(t, be, nil,
		toolCallHandler(t, "dropDatabase", `{}`))

	result := a.ProcessCommand(context.Background(), 1, "do something weird")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "dropDatabase")
}

func TestProcessCommand_AuthFailureFallsBack(t *testing.T) {
	be := newStubBackend()
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	result := a.ProcessCommand(context.Background(), 1, "add iPhone for $999")
	assert.False(t, result.Success)
	assert.True(t, result.FallbackToMenu)
}

func TestProcessCommand_OverloadSuggestsRetry(t *testing.T) {
	be := newStubBackend()
	a := newPipelineAssistant(t, be, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	result := a.ProcessCommand(context.Background(), 1, "add iPhone for $999")
	assert.False(t, result.Success)
	assert.True(t, result.Retry)
}
