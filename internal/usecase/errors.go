package usecase

import "errors"

// ErrProviderNotConfigured reports a classification run started without a
// usable provider credential. Runs fail fast on it, before any item is read.
var ErrProviderNotConfigured = errors.New("classification provider not configured")

// ErrMissingFeedURL is returned by preview requests without a feed URL.
var ErrMissingFeedURL = errors.New("missing feedUrl parameter")
