package fleet

import "errors"

var (
	// ErrDuplicateIdentity is returned when a session is constructed for an
	// identity that is already live.
	ErrDuplicateIdentity = errors.New("identity already registered")

	// ErrAuthentication is returned when the connector rejects the credential
	// or cannot connect.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAlreadyActivated is returned by a second Activate call.
	// The processor installed by the first call stays in place.
	ErrAlreadyActivated = errors.New("registry already activated")

	// ErrNilProcessor is returned when Activate is called without a processor.
	ErrNilProcessor = errors.New("processor is nil")
)
