package manifest

import "errors"

var (
	ErrManifest     = errors.New("invalid bootstrap manifest")
	ErrRequirements = errors.New("invalid requirements file")
)
