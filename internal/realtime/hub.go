package realtime

import "sync"

type hub struct {
	mu       sync.RWMutex
	next     int
	handlers map[Resource]map[int]Handler
	status   map[int]StatusHandler
}

func newHub() *hub {
	return &hub{
		handlers: make(map[Resource]map[int]Handler),
		status:   make(map[int]StatusHandler),
	}
}

func (h *hub) subscribe(r Resource, fn Handler) Unsubscribe {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	if h.handlers[r] == nil {
		h.handlers[r] = make(map[int]Handler)
	}
	h.handlers[r][id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers[r], id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) subscribeStatus(fn StatusHandler) Unsubscribe {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	h.status[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.status, id)
			h.mu.Unlock()
		})
	}
}

// publish reports how many handlers received ev.
func (h *hub) publish(ev Event) int {
	h.mu.RLock()
	fns := make([]Handler, 0, len(h.handlers[ev.Resource()]))
	for _, fn := range h.handlers[ev.Resource()] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
	return len(fns)
}

func (h *hub) publishStatus(s Status) {
	h.mu.RLock()
	fns := make([]StatusHandler, 0, len(h.status))
	for _, fn := range h.status {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (h *hub) count(r Resource) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[r])
}
