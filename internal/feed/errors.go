package feed

import (
	"errors"
	"fmt"
)

var ErrAuthRequired = errors.New("feed: authentication required")

// FetchError 远端数据源读取失败
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("feed: fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
