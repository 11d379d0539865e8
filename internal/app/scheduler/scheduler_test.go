package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCleaner) CleanupOrphans(context.Context) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New("not a cron spec", &fakeCleaner{})
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure is logged", errors.New("mongo down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCleaner{err: tt.err}
			s, err := New("@every 1h", c)
			require.NoError(t, err)

			s.RunOnce()
			assert.Equal(t, int32(1), c.calls.Load())
		})
	}
}

func TestStartStop(t *testing.T) {
	s, err := New("@hourly", &fakeCleaner{})
	require.NoError(t, err)

	s.Start()
	s.Stop(context.Background())
}
