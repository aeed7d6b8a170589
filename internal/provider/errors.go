package provider

import "errors"

// ErrMissingAPIKey reports a connection without credentials.
var ErrMissingAPIKey = errors.New("api key is required")
