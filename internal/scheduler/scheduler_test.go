// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdd_Validation(t *testing.T) {
	s := New(testLogger())
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		job  Job
	}{
		{"missing name", Job{Schedule: "@hourly", Run: noop}},
		{"missing run", Job{Name: "a", Schedule: "@hourly"}},
		{"bad schedule", Job{Name: "a", Schedule: "every now and then", Run: noop}},
		{"seconds field", Job{Name: "a", Schedule: "0 0 0 * * *", Run: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.Add(tt.job))
		})
	}

	require.NoError(t, s.Add(Job{Name: "a", Schedule: "@hourly", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "a", Schedule: "@daily", Run: noop}), "duplicate name")
}

func TestStartStop(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "@every 1h", Run: func(context.Context) error { return nil }}))

	s.Start()
	jobs := s.List()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].NextRun.IsZero(), "next run is set once started")
	s.Stop()
}

func TestTriggerNow(t *testing.T) {
	s := New(testLogger())
	var runs atomic.Int32
	require.NoError(t, s.Add(Job{
		Name:     "count",
		Schedule: "@daily",
		Run: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.TriggerNow("count"))
	require.NoError(t, s.TriggerNow("count"))
	assert.Equal(t, int32(2), runs.Load())

	err := s.TriggerNow("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTriggerNow_RecordsFailures(t *testing.T) {
	s := New(testLogger())
	fail := true
	require.NoError(t, s.Add(Job{
		Name:     "flaky",
		Schedule: "@daily",
		Run: func(context.Context) error {
			if fail {
				return errors.New("disk on fire")
			}
			return nil
		},
	}))
	require.NoError(t, s.Add(Job{
		Name:     "panics",
		Schedule: "@daily",
		Run:      func(context.Context) error { panic("boom") },
	}))

	assert.EqualError(t, s.TriggerNow("flaky"), "disk on fire")
	assert.ErrorContains(t, s.TriggerNow("panics"), "boom")

	jobs := s.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, "flaky", jobs[0].Name)
	assert.Equal(t, "disk on fire", jobs[0].LastError)
	assert.Contains(t, jobs[1].LastError, "boom")

	fail = false
	require.NoError(t, s.TriggerNow("flaky"))
	assert.Empty(t, s.List()[0].LastError)
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := New(testLogger())
	started := make(chan struct{})
	done := make(chan error, 1)
	require.NoError(t, s.Add(Job{
		Name:     "slow",
		Schedule: "@daily",
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}))

	s.Start()
	go func() { done <- s.TriggerNow("slow") }()
	<-started
	s.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not cancelled")
	}
}

func TestList_Sorted(t *testing.T) {
	s := New(testLogger())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Add(Job{Name: name, Schedule: "@daily", Run: func(context.Context) error { return nil }}))
	}

	var names []string
	for _, j := range s.List() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}
