package errs

import "errors"

var (
	ErrInvalid    = errors.New("invalid")
	ErrNotFound   = errors.New("not found")
	ErrIngestion  = errors.New("ingestion failed")
	ErrIndexWrite = errors.New("index write failed")
	ErrIndexClear = errors.New("index clear failed")
	ErrCompletion = errors.New("completion failed")
)

func IsIndexClear(err error) bool {
	return errors.Is(err, ErrIndexClear)
}

func IsIngestion(err error) bool {
	return errors.Is(err, ErrIngestion)
}
