package editor

import "sync"

// ReleaseListener is the host's window-level pointer-release hook. It
// catches releases that happen outside the page canvas.
type ReleaseListener interface {
	// ListenRelease registers fn and returns a function that unregisters it.
	ListenRelease(fn func()) (stop func())
}

// Gesture is the handle of one in-progress drawing gesture. It owns the
// window-level release subscription; Release drops it exactly once.
type Gesture struct {
	once sync.Once
	stop func()
}

func startGesture(l ReleaseListener, onRelease func()) *Gesture {
	g := &Gesture{}
	if l != nil {
		g.stop = l.ListenRelease(onRelease)
	}
	return g
}

// Release unregisters the release listener. Later calls do nothing.
func (g *Gesture) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		if g.stop != nil {
			g.stop()
		}
	})
}
