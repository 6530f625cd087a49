package apierr

import (
	"errors"

	"github.com/sashabaranov/go-openai"
)

// FromOpenAI maps a go-openai client error onto a service error using the
// HTTP status it carries.
func FromOpenAI(kind error, op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return WithStatus(kind, op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return WithStatus(kind, op, reqErr.HTTPStatusCode, err)
	}
	return FromTransport(kind, op, err)
}
