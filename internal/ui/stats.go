package ui

import (
	"fmt"
	"sync/atomic"
)

type Stats struct {
	Refreshed   atomic.Int64
	Failed      atomic.Int64
	NewChapters atomic.Int64
}

func (s *Stats) Summary() string {
	return fmt.Sprintf("%d refreshed, %d with a new chapter, %d failed",
		s.Refreshed.Load(), s.NewChapters.Load(), s.Failed.Load())
}
