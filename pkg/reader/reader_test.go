package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ebfe/scard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	readers := []string{"ACS ACR122U 00 00", "Gemalto PC Twin Reader 01 00", "1"}

	tests := []struct {
		name     string
		selector string
		want     string
	}{
		{"First by default", "0", "ACS ACR122U 00 00"},
		{"By index", "1", "1"}, // name match wins over index
		{"By name", "Gemalto PC Twin Reader 01 00", "Gemalto PC Twin Reader 01 00"},
		{"Index of reader named like an index", "2", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(readers, tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	readers := []string{"ACS ACR122U 00 00"}
	for _, selector := range []string{"-1", "1", "ACS", "", "acs acr122u 00 00"} {
		_, err := Resolve(readers, selector)
		assert.ErrorIs(t, err, ErrReaderNotFound, "selector %q", selector)
	}

	_, err := Resolve(nil, "0")
	assert.ErrorIs(t, err, ErrReaderNotFound)
}

// fakeWaiter reports the scripted event states, one per call.
type fakeWaiter struct {
	events []scard.StateFlag
	errs   []error
	calls  int
}

func (w *fakeWaiter) GetStatusChange(rs []scard.ReaderState, timeout time.Duration) error {
	i := w.calls
	w.calls++
	if i < len(w.events) {
		rs[0].EventState = w.events[i]
	}
	if i < len(w.errs) {
		return w.errs[i]
	}
	return scard.ErrTimeout
}

func TestWaitForCard(t *testing.T) {
	w := &fakeWaiter{
		events: []scard.StateFlag{scard.StateEmpty, scard.StateEmpty, scard.StatePresent | scard.StateChanged},
		errs:   []error{nil, scard.ErrTimeout, nil},
	}
	require.NoError(t, waitForCard(context.Background(), w, "reader"))
	assert.Equal(t, 3, w.calls)
}

func TestWaitForCard_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWaiter{}
	err := waitForCard(ctx, w, "reader")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, w.calls)
}

func TestWaitForCard_ReaderError(t *testing.T) {
	w := &fakeWaiter{errs: []error{scard.ErrReaderUnavailable}}
	err := waitForCard(context.Background(), w, "reader")
	assert.True(t, errors.Is(err, scard.ErrReaderUnavailable))
}
