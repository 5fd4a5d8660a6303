package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func messageServer(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := messageServer(t, http.StatusOK, map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": `{"events":[],`},
			{"type": "text", "text": `"places":[],"services":[]}`},
		},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                120,
			"output_tokens":               40,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     900,
		},
	})

	temp := 0.0
	client := NewClient("test-key", option.WithBaseURL(ts.URL))
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   8000,
		System:      BuildCachedSystemBlocks("extract entities", "5m"),
		Messages:    []Message{{Role: "user", Content: "batch"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, `{"events":[],"places":[],"services":[]}`, resp.Text())
	assert.False(t, resp.Truncated())
	assert.Equal(t, int64(900), resp.Usage.CacheReadInputTokens)
}

func TestSDKClient_CreateMessage_ServerErrorIsRetryable(t *testing.T) {
	ts := messageServer(t, http.StatusServiceUnavailable, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "overloaded_error", "message": "Overloaded"},
	})

	client := NewClient("test-key", option.WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 10,
		Messages:  []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestSDKClient_CreateMessage_BadRequestNotRetryable(t *testing.T) {
	ts := messageServer(t, http.StatusBadRequest, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "invalid_request_error", "message": "bad"},
	})

	client := NewClient("test-key", option.WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 10,
		Messages:  []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable_PlainError(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestMessageResponse_TextAndTruncated(t *testing.T) {
	var nilResp *MessageResponse
	assert.Equal(t, "", nilResp.Text())
	assert.False(t, nilResp.Truncated())

	resp := &MessageResponse{
		Content:    []ContentBlock{{Type: "text", Text: "a"}, {Type: "tool_use"}, {Type: "text", Text: "b"}},
		StopReason: "max_tokens",
	}
	assert.Equal(t, "ab", resp.Text())
	assert.True(t, resp.Truncated())
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	assert.Nil(t, BuildCachedSystemBlocks("", "5m"))

	blocks := BuildCachedSystemBlocks("prompt", "1h")
	require.Len(t, blocks, 1)
	assert.Equal(t, "prompt", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestTokenUsage_AddAndEstimateCost(t *testing.T) {
	var total TokenUsage
	total.Add(TokenUsage{InputTokens: 500_000, OutputTokens: 100_000})
	total.Add(TokenUsage{InputTokens: 500_000, OutputTokens: 100_000})
	assert.Equal(t, int64(1_000_000), total.InputTokens)

	// 1M input at $1 + 200k output at $5.
	assert.InDelta(t, 2.0, total.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	assert.Zero(t, total.EstimateCost("unknown-model"))
}

func TestMockClient(t *testing.T) {
	mc := new(MockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&MessageResponse{Content: []ContentBlock{{Type: "text", Text: "{}"}}}, nil)

	resp, err := mc.CreateMessage(context.Background(), MessageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text())
	mc.AssertExpectations(t)
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 1, OutputTokens: 1}.LogCost("claude-haiku-4-5-20251001", "extract")
	})
}
