package relay

import "errors"

// ErrObserverNotFound is returned when removing an observer that is not
// registered.
var ErrObserverNotFound = errors.New("relay: observer not found")
