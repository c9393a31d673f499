package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingLedger struct {
	*MemoryLedger

	mu     sync.Mutex
	sweeps int
	err    error
}

func (l *countingLedger) SweepExpired(ctx context.Context) (int, error) {
	l.mu.Lock()
	l.sweeps++
	err := l.err
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return l.MemoryLedger.SweepExpired(ctx)
}

func (l *countingLedger) sweepCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweeps
}

func TestSweeper_SweepsOnInterval(t *testing.T) {
	target := &countingLedger{MemoryLedger: NewMemoryLedger(time.Hour)}
	sweeper := NewSweeper(target, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for target.sweepCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ticked twice")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancellation")
	}
}

func TestSweeper_SurvivesSweepErrors(t *testing.T) {
	target := &countingLedger{
		MemoryLedger: NewMemoryLedger(time.Hour),
		err:          errors.New("sweep refused"),
	}
	sweeper := NewSweeper(target, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for target.sweepCount() < 3 {
		select {
		case <-deadline:
			t.Fatal("sweeper stopped retrying after an error")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestSweeper_DefaultsInterval(t *testing.T) {
	sweeper := NewSweeper(NewMemoryLedger(time.Hour), 0, nil)
	if sweeper.Interval != defaultSweepInterval {
		t.Fatalf("expected default interval %s, got %s", defaultSweepInterval, sweeper.Interval)
	}
}
