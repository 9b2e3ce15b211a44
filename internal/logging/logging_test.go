package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSyncLoggerDoesNotPanicOnAnyLevel(t *testing.T) {
	l := New(Config{Level: Debug})
	defer l.Close()
	l.Debugf("debug %d", 1)
	l.Infof("info")
	l.Warnf("warn %s", "x")
	l.Errorf("error")
}

func TestAsyncLoggerDrainsAndClosesCleanly(t *testing.T) {
	l := New(Config{Level: Debug, QueueSize: 16})
	for i := 0; i < 16; i++ {
		l.Infof("line %d", i)
	}
	l.Close()
}

func TestAsyncLoggerDropsRatherThanBlocksWhenFull(t *testing.T) {
	l := New(Config{Level: Error, QueueSize: 1})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			l.Errorf("flood %d", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("logging call blocked instead of dropping")
	}
	l.Close()
}
