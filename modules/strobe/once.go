package strobe

import "sync"

// Once wraps fn so that only the first call runs it. Later and concurrent
// calls return after the first call has finished.
func Once(fn func()) func() {
	var once sync.Once
	return func() { once.Do(fn) }
}
