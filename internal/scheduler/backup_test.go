package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

type countingBackuper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingBackuper) Backup() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return "2025-01-01T00-00-00", c.err
}

func (c *countingBackuper) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestBackupSchedulerCoalescesBursts(t *testing.T) {
	b := &countingBackuper{}
	bs := NewBackupScheduler(b, logger.New("error", false), 30*time.Millisecond)
	bs.Start(context.Background())
	defer bs.Stop()

	for i := 0; i < 5; i++ {
		bs.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := b.count(); got != 1 {
		t.Errorf("Backup() called %d times, want 1", got)
	}
}

func TestBackupSchedulerStopFlushesPending(t *testing.T) {
	b := &countingBackuper{}
	bs := NewBackupScheduler(b, logger.New("error", false), time.Hour)
	bs.Start(context.Background())

	bs.Trigger()
	time.Sleep(20 * time.Millisecond)
	bs.Stop()

	if got := b.count(); got != 1 {
		t.Errorf("Backup() called %d times after Stop, want 1", got)
	}
}

func TestBackupSchedulerIdleStopDoesNothing(t *testing.T) {
	b := &countingBackuper{}
	bs := NewBackupScheduler(b, logger.New("error", false), time.Hour)
	bs.Start(context.Background())
	bs.Stop()
	bs.Stop()

	if got := b.count(); got != 0 {
		t.Errorf("Backup() called %d times, want 0", got)
	}
}

func TestBackupSchedulerSwallowsFailures(t *testing.T) {
	b := &countingBackuper{err: errors.New("disk full")}
	bs := NewBackupScheduler(b, logger.New("error", false), 10*time.Millisecond)
	bs.Start(context.Background())

	bs.Trigger()
	time.Sleep(50 * time.Millisecond)
	bs.Trigger()
	time.Sleep(50 * time.Millisecond)
	bs.Stop()

	if got := b.count(); got != 2 {
		t.Errorf("Backup() called %d times, want 2 (failures must not stop the loop)", got)
	}
}

func TestBackupSchedulerStopWithoutStart(t *testing.T) {
	bs := NewBackupScheduler(&countingBackuper{}, logger.Nop(), 0)
	bs.Stop()
}
