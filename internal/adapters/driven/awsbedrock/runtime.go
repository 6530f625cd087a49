// Package awsbedrock holds the Bedrock runtime plumbing shared by the
// embedding and generation adapters.
package awsbedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/custodia-labs/ragline/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragline/internal/core/domain"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// InvokeAPI is the subset of the runtime client the adapters call.
type InvokeAPI interface {
	InvokeModel(
		ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// NewRuntime builds a runtime client from the default AWS credential chain.
func NewRuntime(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %w", domain.ErrNotConfigured, err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// Invoke marshals in, calls the model and unmarshals the body into out.
func Invoke(ctx context.Context, api InvokeAPI, modelID string, kind error, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.NewServiceError(kind, op, false, fmt.Errorf("marshal request: %w", err))
	}

	resp, err := api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Classify(kind, op, err)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return domain.NewServiceError(kind, op, false, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Classify maps Bedrock exceptions onto service errors. Throttling is
// rate limited; unavailability and timeouts are retryable.
func Classify(kind error, op string, err error) error {
	var (
		throttling  *types.ThrottlingException
		unavailable *types.ServiceUnavailableException
		internal    *types.InternalServerException
		timeout     *types.ModelTimeoutException
		notReady    *types.ModelNotReadyException
	)
	switch {
	case errors.As(err, &throttling):
		return domain.NewRateLimitError(kind, op, err)
	case errors.As(err, &unavailable), errors.As(err, &internal),
		errors.As(err, &timeout), errors.As(err, &notReady):
		return domain.NewServiceError(kind, op, true, err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return apierr.WithStatus(kind, op, respErr.HTTPStatusCode(), err)
	}
	return apierr.FromTransport(kind, op, err)
}
