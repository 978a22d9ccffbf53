package publish

import "errors"

// ErrNotConnected is returned when publishing is attempted without an
// established broker connection.
var ErrNotConnected = errors.New("publisher not connected")
