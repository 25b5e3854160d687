package persistence

import "errors"

var (
	ErrPipelineNotFound  = errors.New("pipeline not found")
	ErrRunResultNotFound = errors.New("run result not found")
)

func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}

func IsRunResultNotFound(err error) bool {
	return errors.Is(err, ErrRunResultNotFound)
}
