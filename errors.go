package healthmap

import "errors"

var (
	// ErrEntityNotFound is returned when a named entity has no stored record.
	ErrEntityNotFound = errors.New("healthmap: entity not found")

	// ErrEntityExists is returned when adding an entity whose record already
	// exists and overwriting was not requested.
	ErrEntityExists = errors.New("healthmap: entity already exists")

	// ErrAPIKeyMissing is returned when the configured chat provider requires
	// an API key and none was supplied.
	ErrAPIKeyMissing = errors.New("healthmap: api key missing")

	// ErrNoInput is returned when a batch run has no entity names to process.
	ErrNoInput = errors.New("healthmap: no entity names given")

	// ErrUnsupportedFormat is returned for unrecognized document formats.
	ErrUnsupportedFormat = errors.New("healthmap: unsupported document format")
)
