package embeddings

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// ErrTransient marks embedding failures worth retrying: rate limits,
// provider outages, network hiccups. Permanent failures (bad API key,
// malformed input) are returned as-is and fail the operation immediately.
var ErrTransient = errors.New("transient embedding failure")

// ErrMalformedInput marks inputs the provider rejected outright; retrying
// the same batch cannot succeed.
var ErrMalformedInput = errors.New("malformed embedding input")

// classify wraps provider errors so callers can retry on the transient ones.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	// Anything without an HTTP status is a transport-level failure.
	return errors.Join(ErrTransient, err)
}

func classifyStatus(status int, err error) error {
	switch {
	case status == 429 || status >= 500:
		return errors.Join(ErrTransient, err)
	case status == 400 || status == 413:
		return errors.Join(ErrMalformedInput, err)
	default:
		return err
	}
}
