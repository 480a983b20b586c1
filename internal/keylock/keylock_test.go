package keylock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "EQNR.OL")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
	if m.Len() != 0 {
		t.Errorf("entries leaked: %d", m.Len())
	}
}

func TestLockDifferentKeysIndependent(t *testing.T) {
	m := New()
	unlockA, _ := m.Lock(context.Background(), "A")
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, "B")
	if err != nil {
		t.Fatalf("B blocked by A: %v", err)
	}
	unlockB()
}

func TestLockHonoursContext(t *testing.T) {
	m := New()
	unlock, _ := m.Lock(context.Background(), "A")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "A"); err == nil {
		t.Fatal("expected context error while A is held")
	}
	unlock()
	unlock()
	if m.Len() != 0 {
		t.Errorf("entries leaked: %d", m.Len())
	}
}

func TestRefsCountsHoldersAndWaiters(t *testing.T) {
	m := New()
	unlock, err := m.Lock(context.Background(), "EQNR.OL")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	waited := make(chan error, 1)
	go func() {
		_, err := m.Lock(ctx, "EQNR.OL")
		waited <- err
	}()
	deadline := time.Now().Add(time.Second)
	for m.Refs("EQNR.OL") != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := m.Refs("EQNR.OL"); n != 2 {
		t.Fatalf("Refs = %d, want 2", n)
	}
	cancel()
	<-waited
	unlock()
	if n := m.Refs("EQNR.OL"); n != 0 {
		t.Errorf("Refs after release = %d", n)
	}
}
