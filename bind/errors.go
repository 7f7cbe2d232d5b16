package bind

import "errors"

var (
	// ErrInvalidConfiguration is returned when a binding is created without a
	// reader, writer, codec or host.
	ErrInvalidConfiguration = errors.New("invalid bind configuration")
	// ErrInvalidState is returned by keyed accessors when the bound data is
	// not a mapping.
	ErrInvalidState = errors.New("bind data is not a mapping")
)
