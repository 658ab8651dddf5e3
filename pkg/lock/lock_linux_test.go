//go:build linux

package lock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPathLockSerializesSamePath(t *testing.T) {
	dir := t.TempDir()
	var active int32
	var sawOverlap bool

	run := func() {
		l := NewPathLock("/sys/fs/cgroup/foo", dir)
		if err := l.Acquire(); err != nil {
			t.Errorf("Acquire: %v", err)
			return
		}
		defer l.Release()

		if atomic.AddInt32(&active, 1) > 1 {
			sawOverlap = true
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	done := make(chan struct{})
	go func() { run(); done <- struct{}{} }()
	go func() { run(); done <- struct{}{} }()
	<-done
	<-done

	if sawOverlap {
		t.Fatal("two holders of the same path lock ran concurrently")
	}
}

func TestPathLockDifferentPathsDoNotBlock(t *testing.T) {
	dir := t.TempDir()

	l1 := NewPathLock("/sys/fs/cgroup/a", dir)
	l2 := NewPathLock("/sys/fs/cgroup/b", dir)

	if err := l1.Acquire(); err != nil {
		t.Fatalf("Acquire l1: %v", err)
	}
	defer l1.Release()

	done := make(chan error, 1)
	go func() { done <- l2.Acquire() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Acquire l2: %v", err)
		}
		l2.Release()
	case <-time.After(time.Second):
		t.Fatal("Acquire on a different path blocked on l1's lock")
	}
}
