package runtime

import "errors"

var (
	ErrRuntime        = errors.New("runtime error")
	ErrImageResolve   = errors.New("image reference not resolvable")
	ErrEmptyIndex     = errors.New("empty image index")
	ErrEmptyArchive   = errors.New("archive contains no image")
	ErrMultipleImages = errors.New("archive contains multiple images")
)
