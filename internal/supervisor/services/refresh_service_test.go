// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cascade/internal/cascade"
	"github.com/tomtom215/cascade/internal/logging"
)

var _ suture.Service = (*RefreshService)(nil)

type fakeRefresher struct {
	calls  atomic.Int32
	err    error
	called chan struct{}
	sawID  atomic.Bool
}

func newFakeRefresher(err error) *fakeRefresher {
	return &fakeRefresher{err: err, called: make(chan struct{}, 16)}
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*cascade.RefreshResult, error) {
	f.calls.Add(1)
	if logging.CorrelationIDFromContext(ctx) != "" {
		f.sawID.Store(true)
	}
	select {
	case f.called <- struct{}{}:
	default:
	}
	if f.err != nil {
		return nil, f.err
	}
	return &cascade.RefreshResult{Records: 3, Changed: true}, nil
}

func (f *fakeRefresher) waitCalls(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.called:
		case <-time.After(2 * time.Second):
			t.Fatalf("saw %d refreshes, want %d", f.calls.Load(), n)
		}
	}
}

func serveInBackground(svc *RefreshService) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return cancel, errCh
}

func TestRefreshServiceRefreshesOnStartAndTick(t *testing.T) {
	t.Parallel()

	refresher := newFakeRefresher(nil)
	cancel, errCh := serveInBackground(NewRefreshService(refresher, 10*time.Millisecond, true))

	refresher.waitCalls(t, 3)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if !refresher.sawID.Load() {
		t.Error("refresh ran without a correlation id")
	}
}

func TestRefreshServiceSkipsStartupRefresh(t *testing.T) {
	t.Parallel()

	refresher := newFakeRefresher(nil)
	cancel, errCh := serveInBackground(NewRefreshService(refresher, time.Hour, false))

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-errCh

	if got := refresher.calls.Load(); got != 0 {
		t.Errorf("refreshes = %d, want 0", got)
	}
}

func TestRefreshServiceStartupOnly(t *testing.T) {
	t.Parallel()

	refresher := newFakeRefresher(nil)
	cancel, errCh := serveInBackground(NewRefreshService(refresher, 0, true))

	refresher.waitCalls(t, 1)
	time.Sleep(30 * time.Millisecond)
	cancel()
	<-errCh

	if got := refresher.calls.Load(); got != 1 {
		t.Errorf("refreshes = %d, want exactly the start-up one", got)
	}
}

func TestRefreshServiceSurvivesFailures(t *testing.T) {
	t.Parallel()

	refresher := newFakeRefresher(errors.New("upstream unavailable"))
	svc := NewRefreshService(refresher, 10*time.Millisecond, true)
	cancel, errCh := serveInBackground(svc)

	refresher.waitCalls(t, 3)
	select {
	case err := <-errCh:
		t.Fatalf("Serve returned early: %v", err)
	default:
	}
	cancel()
	<-errCh

	if svc.String() != "reference-refresh" {
		t.Errorf("String() = %q", svc.String())
	}
}
