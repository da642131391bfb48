package pickstore

import "errors"

var (
	// ErrNestedDispatch is returned when a dispatch is issued from inside a
	// notification fan-out and the store uses [NestedReject].
	ErrNestedDispatch = errors.New("pickstore: dispatch called during notification fan-out")

	// ErrActionType is returned when a dispatched value cannot be interpreted:
	// it is neither assignable to the reducer's action type (stores with a
	// reducer) nor a value or updater of the store type (stores without one).
	ErrActionType = errors.New("pickstore: unsupported action type")
)
