package logger

import (
	"sync"
	"sync/atomic"
)

type levelCounts struct {
	warns  atomic.Int64
	errors atomic.Int64
}

var components sync.Map // map[string]*levelCounts

func countsFor(component string) *levelCounts {
	if c, ok := components.Load(component); ok {
		return c.(*levelCounts)
	}
	c, _ := components.LoadOrStore(component, &levelCounts{})
	return c.(*levelCounts)
}

func recordWarn(component string) {
	countsFor(component).warns.Add(1)
}

func recordError(component string) {
	countsFor(component).errors.Add(1)
}

// ComponentCounts is the number of warnings and errors a component logged
// since start.
type ComponentCounts struct {
	Warnings int64 `json:"warnings"`
	Errors   int64 `json:"errors"`
}

// Counts returns a snapshot of warning and error counts per component.
func Counts() map[string]ComponentCounts {
	out := make(map[string]ComponentCounts)
	components.Range(func(k, v any) bool {
		c := v.(*levelCounts)
		out[k.(string)] = ComponentCounts{Warnings: c.warns.Load(), Errors: c.errors.Load()}
		return true
	})
	return out
}
