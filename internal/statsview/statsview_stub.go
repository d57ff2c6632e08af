//go:build !statsview
// +build !statsview

package statsview

import (
	"errors"
	"io"
)

var errNotBuilt = errors.New("statsview not available: build with -tags statsview")

func Launch(addr string, output io.Writer) error {
	return errNotBuilt
}

func Available() bool {
	return false
}
