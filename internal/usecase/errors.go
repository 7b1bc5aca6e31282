package usecase

import "errors"

var (
	ErrAcquisitionRunning = errors.New("acquisition already running")
	ErrAcquisitionIdle    = errors.New("no acquisition running")
	ErrUnknownSource      = errors.New("unknown sample source")
)
