package sseclient

import (
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// collect returns an event handler that forwards received events to a
// channel as [id, event, data] triplets.
func collect(ch chan<- [3]string) EventHandler {
	return func(id, event, data string) {
		ch <- [3]string{id, event, data}
	}
}

// waitEvent receives a single dispatched event or fails the test after a
// timeout.
func waitEvent(t *testing.T, ch <-chan [3]string) [3]string {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(time.Second):
		t.Fatal("no event was dispatched")
		return [3]string{}
	}
}

func TestDispatcherGeneric(t *testing.T) {
	d := newDispatcher()
	ch := make(chan [3]string, 1)
	d.setMessage(collect(ch))

	d.generic("1", "hello")
	assert.Equal(t, [3]string{"1", "message", "hello"}, waitEvent(t, ch))
}

func TestDispatcherTypedNoFallback(t *testing.T) {
	d := newDispatcher()
	generic := make(chan [3]string, 10)
	typed := make(chan [3]string, 10)
	d.setMessage(collect(generic))
	d.addListener("foo", collect(typed))

	d.typed("1", "foo", "a\nb")
	assert.Equal(t, [3]string{"1", "foo", "a\nb"}, waitEvent(t, typed))

	// an event type without a listener is dropped, the following generic
	// event proves it did not leak to the message callback
	d.typed("2", "bar", "x")
	d.generic("3", "done")
	assert.Equal(t, [3]string{"3", "message", "done"}, waitEvent(t, generic))
}

func TestDispatcherOrder(t *testing.T) {
	d := newDispatcher()
	ch := make(chan [3]string, 100)
	d.setMessage(collect(ch))

	for i := 0; i < 100; i++ {
		d.generic(strconv.Itoa(i), "x")
	}
	for i := 0; i < 100; i++ {
		got := waitEvent(t, ch)
		assert.Equal(t, strconv.Itoa(i), got[0])
	}
}

func TestDispatcherDoesNotBlock(t *testing.T) {
	d := newDispatcher()
	blocked := make(chan struct{})
	release := make(chan struct{})
	seen := make(chan [3]string, 20)
	d.setMessage(func(id, event, data string) {
		if id == "0" {
			close(blocked)
			<-release
		}
		seen <- [3]string{id, event, data}
	})

	d.generic("0", "x")
	<-blocked

	// callback is stuck, posting more events must not block
	for i := 1; i <= 10; i++ {
		d.generic(strconv.Itoa(i), "x")
	}
	close(release)

	for i := 0; i <= 10; i++ {
		got := waitEvent(t, seen)
		assert.Equal(t, strconv.Itoa(i), got[0], "events delivered in post order")
	}
}

func TestDispatcherErrorReplay(t *testing.T) {
	d := newDispatcher()

	d.failed(errors.New("first"))
	d.failed(errors.New("second"))

	ch := make(chan error, 2)
	d.setError(func(err error) { ch <- err })

	// only the latest unreported failure is replayed
	select {
	case err := <-ch:
		assert.EqualError(t, err, "second")
	case <-time.After(time.Second):
		t.Fatal("recorded failure was not replayed")
	}

	// and it is replayed only once
	d.setError(func(err error) { ch <- err })
	select {
	case err := <-ch:
		t.Errorf("unexpected error delivery: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcherErrorDirect(t *testing.T) {
	d := newDispatcher()
	ch := make(chan error, 1)
	d.setError(func(err error) { ch <- err })

	d.failed(errors.New("boom"))
	select {
	case err := <-ch:
		assert.EqualError(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatal("error callback was not invoked")
	}
}

func TestDispatcherLastHandlerWins(t *testing.T) {
	d := newDispatcher()
	first := make(chan [3]string, 1)
	second := make(chan [3]string, 1)
	d.setMessage(collect(first))
	d.setMessage(collect(second))

	d.generic("1", "x")
	waitEvent(t, second)
	assert.Equal(t, 0, len(first), "replaced callback must not be invoked")
}

func TestDispatcherEventTypes(t *testing.T) {
	d := newDispatcher()
	assert.Empty(t, d.eventTypes())

	h := func(string, string, string) {}
	d.addListener("a", h)
	d.addListener("b", h)
	d.addListener("b", h)

	types := d.eventTypes()
	sort.Strings(types)
	assert.Equal(t, []string{"a", "b"}, types)

	d.removeListener("a")
	d.removeListener("missing")
	assert.Equal(t, []string{"b"}, d.eventTypes())
}

func TestDispatcherOpen(t *testing.T) {
	d := newDispatcher()

	// no callback registered, must not panic
	d.open()

	ch := make(chan struct{}, 1)
	d.setOpen(func() { ch <- struct{}{} })
	d.open()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("open callback was not invoked")
	}
}
