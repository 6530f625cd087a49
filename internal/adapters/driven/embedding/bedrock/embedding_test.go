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

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// fakeRuntime answers with a vector whose first value is the input length.
type fakeRuntime struct {
	requests []titanRequest
	err      error
}

func (f *fakeRuntime) InvokeModel(
	_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options),
) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var req titanRequest
	if err := json.Unmarshal(in.Body, &req); err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	body, _ := json.Marshal(titanResponse{Embedding: []float32{float32(len(req.InputText)), 1}})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewWithAPI(rt, Config{Dimensions: 256})

	vectors, err := s.EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 1}, {3, 1}, {2, 1}}, vectors)
	require.Len(t, rt.requests, 3)
	assert.Equal(t, 256, rt.requests[0].Dimensions)
	assert.True(t, rt.requests[0].Normalize)
}

func TestDefaults(t *testing.T) {
	s := NewWithAPI(&fakeRuntime{}, Config{})
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
}

func TestEmbed_Throttled(t *testing.T) {
	s := NewWithAPI(&fakeRuntime{err: &types.ThrottlingException{Message: aws.String("slow down")}}, Config{})

	_, err := s.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}
