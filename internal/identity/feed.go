package identity

import (
	"context"
	"sync"
)

// Feed broadcasts the current uid to any number of readers. Each reader
// receives the current value on subscription and then the latest value
// after every change; intermediate values may be skipped by slow readers.
type Feed struct {
	mu     sync.Mutex
	uid    string
	nextID int
	subs   map[int]chan string
}

// Subscribe returns a channel carrying the current uid and every later
// change. The channel is closed when ctx is done.
func (f *Feed) Subscribe(ctx context.Context) <-chan string {
	ch := make(chan string, 1)

	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[int]chan string)
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	ch <- f.uid
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
		close(ch)
	}()
	return ch
}

// Set changes the current uid. Setting the same uid again is a no-op.
func (f *Feed) Set(uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uid == f.uid {
		return
	}
	f.uid = uid
	for _, ch := range f.subs {
		// Replace any value the reader has not consumed yet.
		select {
		case <-ch:
		default:
		}
		ch <- uid
	}
}

// Current returns the current uid.
func (f *Feed) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uid
}
