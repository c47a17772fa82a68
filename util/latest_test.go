package util

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLatest(t *testing.T) {
	l := NewLatest[int]()
	v, version := l.Value()
	assert.Equal(t, 0, v)
	assert.Equal(t, uint64(0), version, "nothing sent yet")
}

func TestLatest_SendAndValue(t *testing.T) {
	l := NewLatest[string]()
	l.Send("hello")
	l.Send("world")

	v, version := l.Value()
	assert.Equal(t, "world", v, "Value should be the last one sent")
	assert.Equal(t, uint64(2), version)
}

func TestLatest_WaitReturnsImmediatelyWhenNewer(t *testing.T) {
	l := NewLatest[int]()
	l.Send(7)

	v, version, err := l.Wait(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, uint64(1), version)
}

func TestLatest_WaitBlocksUntilSend(t *testing.T) {
	l := NewLatest[int]()
	done := make(chan int)
	go func() {
		v, _, err := l.Wait(context.Background(), 0)
		assert.NoError(t, err)
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Wait should block until a value is sent")
	case <-time.After(20 * time.Millisecond):
	}

	l.Send(42)
	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Send")
	}
}

func TestLatest_WaitHonoursContext(t *testing.T) {
	l := NewLatest[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, version, err := l.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(0), version)
}

func TestLatest_ManyObservers(t *testing.T) {
	l := NewLatest[int]()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := l.Wait(context.Background(), 0)
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}
	time.Sleep(10 * time.Millisecond)
	l.Send(1)
	wg.Wait()
}

func TestLatest_Concurrency(t *testing.T) {
	l := NewLatest[int]()
	done := make(chan struct{})

	go func() {
		for i := 1; i <= 1000; i++ {
			l.Send(i)
		}
		close(done)
	}()

	var last uint64
	lastValue := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		v, version, err := l.Wait(ctx, last)
		cancel()
		if err != nil {
			break
		}
		if v < lastValue {
			t.Errorf("read a stale value: got %d, last was %d", v, lastValue)
		}
		lastValue, last = v, version
	}
	<-done

	v, _ := l.Value()
	assert.Equal(t, 1000, v, "Final value should be 1000")
}
