package app

import (
	"sync"
	"testing"
)

func TestKeyedMutexTryLock(t *testing.T) {
	t.Parallel()

	km := newKeyedMutex()
	if !km.TryLock("a") {
		t.Fatal("first TryLock should succeed")
	}
	if km.TryLock("a") {
		t.Fatal("second TryLock on held key should fail")
	}
	if !km.TryLock("b") {
		t.Fatal("different key should be independent")
	}
	km.Unlock("a")
	if !km.TryLock("a") {
		t.Fatal("TryLock after Unlock should succeed")
	}
}

func TestKeyedMutexUnlockUnheldIsNoop(t *testing.T) {
	t.Parallel()

	km := newKeyedMutex()
	km.Unlock("missing")
	if !km.TryLock("missing") {
		t.Fatal("key should be free")
	}
}

func TestKeyedMutexConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	km := newKeyedMutex()
	const goroutines = 32

	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if km.TryLock("cycle") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for range wins {
		n++
	}
	if n != 1 {
		t.Fatalf("expected exactly one winner, got %d", n)
	}
}
