package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

type fakeRuntime struct {
	modelID string
	body    map[string]any
	reply   string
	err     error
}

func (f *fakeRuntime) InvokeModel(
	_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options),
) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.modelID = aws.ToString(in.ModelId)
	if err := json.Unmarshal(in.Body, &f.body); err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.reply)}, nil
}

func TestChat(t *testing.T) {
	rt := &fakeRuntime{reply: `{"content":[{"type":"text","text":"grounded answer"}],"stop_reason":"end_turn"}`}
	s := NewWithAPI(rt, Config{})

	out, err := s.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "use context"},
		{Role: "user", Content: "question"},
	}, driven.ChatOptions{MaxTokens: 200, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", out)

	assert.Equal(t, DefaultModel, rt.modelID)
	assert.Equal(t, bedrockAnthropicVersion, rt.body["anthropic_version"])
	assert.Equal(t, "use context", rt.body["system"])
	assert.Equal(t, float64(200), rt.body["max_tokens"])
	assert.NotContains(t, rt.body, "model")
}

func TestGenerate_StopSequences(t *testing.T) {
	rt := &fakeRuntime{reply: `{"content":[{"type":"text","text":"ok"}]}`}
	s := NewWithAPI(rt, Config{Model: "custom"})

	_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{StopWords: []string{"END"}})
	require.NoError(t, err)
	assert.Equal(t, "custom", rt.modelID)
	assert.Equal(t, []any{"END"}, rt.body["stop_sequences"])
	assert.Equal(t, float64(anthropic.DefaultMaxTokens), rt.body["max_tokens"])
}

func TestChat_Throttled(t *testing.T) {
	s := NewWithAPI(&fakeRuntime{err: &types.ThrottlingException{Message: aws.String("too many")}}, Config{})

	_, err := s.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "q"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrGenerationService)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}
