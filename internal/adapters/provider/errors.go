package provider

import "errors"

// ErrBadResponse is returned when the provider answers with a vector count
// that does not match the request.
var ErrBadResponse = errors.New("malformed provider response")
