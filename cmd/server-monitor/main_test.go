package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardedJobSkipsOverlappingInvocation(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var runs atomic.Int32
	job := guardedJob(context.Background(), "test cycle", func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})

	// Startup run, still in flight when the first tick fires.
	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	<-started

	// The tick overlaps the blocked run and must be skipped, not queued.
	job.Run()
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	<-done

	// Once the first run finished, the next tick executes normally.
	job.Run()
	assert.Equal(t, int32(2), runs.Load())
}
