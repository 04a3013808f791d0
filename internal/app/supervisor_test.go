package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"einkframe/pkg/logx"
)

func TestSupervisorCancelOnError(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(context.Background(), WithLogger(logx.Nop()), WithCancelOnError(true))

	boom := errors.New("boom")
	s.Go("failing", func(ctx context.Context) error { return boom })
	s.Go("waiting", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	select {
	case <-s.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after goroutine error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, boom) {
		t.Errorf("Stop = %v, want the goroutine error", err)
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err = %v, want the goroutine error", s.Err())
	}
}

func TestSupervisorFirstErrorWins(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(context.Background(), WithLogger(logx.Nop()), WithCancelOnError(true))

	first := errors.New("first")
	s.Go("first", func(ctx context.Context) error { return first })
	s.Go("second", func(ctx context.Context) error {
		<-ctx.Done()
		return errors.New("second, after cancel")
	})

	<-s.Context().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Stop(ctx)
	if !errors.Is(s.Err(), first) {
		t.Errorf("Err = %v, want first error", s.Err())
	}
}

func TestSupervisorContextCanceledIsClean(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(context.Background(), WithLogger(logx.Nop()), WithCancelOnError(true))
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop = %v, want nil for a clean shutdown", err)
	}
}

func TestSupervisorRecoversPanic(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(context.Background(), WithLogger(logx.Nop()), WithCancelOnError(true))
	s.Go("panicking", func(ctx context.Context) error { panic("kaboom") })

	select {
	case <-s.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("panic did not cancel the supervisor")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Stop(ctx)
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("Stop = %v, want panic error", err)
	}
}

func TestSupervisorStopTimeout(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(context.Background(), WithLogger(logx.Nop()))
	release := make(chan struct{})
	s.Go("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); err == nil {
		t.Error("Stop should time out while a goroutine ignores cancellation")
	}
	close(release)
}
