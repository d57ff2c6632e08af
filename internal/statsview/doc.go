// Package statsview serves live runtime charts (heap, goroutines, GC
// pauses) over HTTP while the player runs. It is only built when the
// statsview build tag is present:
//
//	go build -tags statsview ./cmd/famiplay
//
// The charts are then at http://<addr>/debug/statsview, with addr taken
// from the debug.statsview_addr config field.
package statsview
