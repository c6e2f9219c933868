package models

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error taxonomy shared by ingestion and query paths.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfiguration indicates bad paths, names or parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrMalformedMetadata indicates a metadata file that is not a JSON object.
	ErrMalformedMetadata = errors.New("malformed metadata")

	// ErrEmbedding indicates the embedding provider failed. Fatal for the batch.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCollectionNotFound indicates a query against an absent collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrProviderTimeout indicates a provider or store call ran past its deadline.
	// Callers may retry the whole operation.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrSynthesis indicates the language model failed to produce an answer.
	ErrSynthesis = errors.New("synthesis failed")
)

// WrapProviderError tags err with kind, and additionally with ErrProviderTimeout
// when err is a deadline or network timeout.
func WrapProviderError(kind, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return fmt.Errorf("%w: %w: %w", kind, ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// IsTimeout reports whether err is a context deadline or a network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrProviderTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
