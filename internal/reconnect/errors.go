package reconnect

import "errors"

// ErrExhausted is returned when every reconnection attempt has failed
// and the fallback (if any) has been invoked.
var ErrExhausted = errors.New("reconnect: attempts exhausted")
