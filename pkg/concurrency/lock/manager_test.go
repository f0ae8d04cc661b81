package lock

import (
	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/storage/heap"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestLockPage_SharedLocksCoexist(t *testing.T) {
	lm := NewLockManager()
	tid1 := transaction.NewTransactionID()
	tid2 := transaction.NewTransactionID()
	pid := heap.NewHeapPageID(1, 0)

	if err := lm.LockPage(tid1, pid, false); err != nil {
		t.Fatalf("tid1 shared lock: %v", err)
	}
	if err := lm.LockPage(tid2, pid, false); err != nil {
		t.Fatalf("tid2 shared lock: %v", err)
	}
	if !lm.IsPageLocked(pid) {
		t.Fatal("expected page to be locked")
	}
}

func TestLockPage_ExclusiveExcludesShared(t *testing.T) {
	lm := NewLockManager()
	tid1 := transaction.NewTransactionID()
	tid2 := transaction.NewTransactionID()
	pid := heap.NewHeapPageID(1, 0)

	if err := lm.LockPage(tid1, pid, true); err != nil {
		t.Fatalf("tid1 exclusive lock: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- lm.LockPage(tid2, pid, false) }()

	select {
	case err := <-done:
		t.Fatalf("tid2 should not have acquired the lock while tid1 holds exclusive, got err=%v", err)
	default:
	}

	lm.UnlockPage(tid1, pid)
	if err := <-done; err != nil {
		t.Fatalf("tid2 lock after release: %v", err)
	}
}

func TestLockPage_UpgradeSharedToExclusive(t *testing.T) {
	lm := NewLockManager()
	tid := transaction.NewTransactionID()
	pid := heap.NewHeapPageID(1, 0)

	if err := lm.LockPage(tid, pid, false); err != nil {
		t.Fatalf("shared lock: %v", err)
	}
	if err := lm.LockPage(tid, pid, true); err != nil {
		t.Fatalf("upgrade to exclusive: %v", err)
	}

	snap := lm.Snapshot()
	if len(snap) != 1 || snap[0].LockType != ExclusiveLock {
		t.Fatalf("expected one exclusive lock in snapshot, got %+v", snap)
	}
}

func TestLockPage_UpgradeBlockedByOtherReader(t *testing.T) {
	lm := NewLockManager()
	tid1 := transaction.NewTransactionID()
	tid2 := transaction.NewTransactionID()
	pid := heap.NewHeapPageID(1, 0)

	if err := lm.LockPage(tid1, pid, false); err != nil {
		t.Fatalf("tid1 shared lock: %v", err)
	}
	if err := lm.LockPage(tid2, pid, false); err != nil {
		t.Fatalf("tid2 shared lock: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- lm.LockPage(tid1, pid, true) }()

	select {
	case err := <-done:
		t.Fatalf("tid1 should not upgrade while tid2 also holds a shared lock, got err=%v", err)
	default:
	}

	lm.UnlockPage(tid2, pid)
	if err := <-done; err != nil {
		t.Fatalf("upgrade after tid2 released: %v", err)
	}
}

// TestDeadlockDetection has two transactions acquire exclusive locks on
// two pages in opposite order, then race to grab the other's page.
// The test checks that at least one of them gets an error back rather
// than both blocking forever. errgroup collects both goroutines'
// results without a manual WaitGroup+error-channel.
func TestDeadlockDetection(t *testing.T) {
	lm := NewLockManager()
	tid1 := transaction.NewTransactionID()
	tid2 := transaction.NewTransactionID()
	pidA := heap.NewHeapPageID(1, 0)
	pidB := heap.NewHeapPageID(1, 1)

	if err := lm.LockPage(tid1, pidA, true); err != nil {
		t.Fatalf("tid1 lock A: %v", err)
	}
	if err := lm.LockPage(tid2, pidB, true); err != nil {
		t.Fatalf("tid2 lock B: %v", err)
	}

	var g errgroup.Group
	g.Go(func() error { return lm.LockPage(tid1, pidB, true) })
	g.Go(func() error { return lm.LockPage(tid2, pidA, true) })

	err := g.Wait()
	if err == nil {
		t.Fatal("expected a deadlock error from one of the two waiters")
	}
}

func TestSnapshot_ReflectsHoldersAndWaiters(t *testing.T) {
	lm := NewLockManager()
	tid1 := transaction.NewTransactionID()
	pid := heap.NewHeapPageID(2, 0)

	if err := lm.LockPage(tid1, pid, true); err != nil {
		t.Fatalf("lock: %v", err)
	}

	snap := lm.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected one entry, got %d", len(snap))
	}
	if len(snap[0].Holders) != 1 || snap[0].Holders[0] != tid1 {
		t.Fatalf("unexpected holders: %+v", snap[0].Holders)
	}

	lm.UnlockPage(tid1, pid)
	if snap := lm.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected empty snapshot after unlock, got %+v", snap)
	}
}

func TestUnlockAllPages_ReleasesEverything(t *testing.T) {
	lm := NewLockManager()
	tid := transaction.NewTransactionID()
	pidA := heap.NewHeapPageID(1, 0)
	pidB := heap.NewHeapPageID(1, 1)

	if err := lm.LockPage(tid, pidA, false); err != nil {
		t.Fatalf("lock A: %v", err)
	}
	if err := lm.LockPage(tid, pidB, true); err != nil {
		t.Fatalf("lock B: %v", err)
	}

	lm.UnlockAllPages(tid)

	if lm.IsPageLocked(pidA) || lm.IsPageLocked(pidB) {
		t.Fatal("expected both pages unlocked")
	}
}
