package acquire

import (
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

type loaderKey struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// idleWatch waits for the networkIdle lifecycle event of one navigation.
// Events from other frames, and from the blank document the tab starts on,
// are ignored. Events that arrive before the navigation is known are kept
// so a fast page is not missed.
type idleWatch struct {
	mu     sync.Mutex
	target *loaderKey
	seen   map[loaderKey]bool
	done   chan struct{}
	fired  bool
}

func newIdleWatch() *idleWatch {
	return &idleWatch{
		seen: make(map[loaderKey]bool),
		done: make(chan struct{}),
	}
}

// observe is the chromedp.ListenTarget callback.
func (w *idleWatch) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != "networkIdle" {
		return
	}
	key := loaderKey{frame: e.FrameID, loader: e.LoaderID}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.target == nil {
		w.seen[key] = true
		return
	}
	if key == *w.target {
		w.fire()
	}
}

// expect sets the navigation to wait for. An empty loader means a
// same-document navigation, which never emits its own lifecycle.
func (w *idleWatch) expect(frame cdp.FrameID, loader cdp.LoaderID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := loaderKey{frame: frame, loader: loader}
	w.target = &key
	if loader == "" || w.seen[key] {
		w.fire()
	}
	w.seen = nil
}

func (w *idleWatch) fire() {
	if w.fired {
		return
	}
	w.fired = true
	close(w.done)
}

// Done is closed once the expected navigation reaches network idle.
func (w *idleWatch) Done() <-chan struct{} {
	return w.done
}
