package pipeline

import "errors"

var (
	ErrBuild               = errors.New("build failed")
	ErrPhase               = errors.New("invalid phase transition")
	ErrPrivilege           = errors.New("privilege violation")
	ErrIdentity            = errors.New("identity provisioning failed")
	ErrDependencies        = errors.New("dependency installation failed")
	ErrCopy                = errors.New("copy failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
)
