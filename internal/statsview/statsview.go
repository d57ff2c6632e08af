//go:build statsview
// +build statsview

package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const path = "/debug/statsview"

// Launch starts the statistics server on addr in a new goroutine.
func Launch(addr string, output io.Writer) error {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go mgr.Start()

	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, path)
	return nil
}

// Available reports whether the binary was built with the statsview tag.
func Available() bool {
	return true
}
