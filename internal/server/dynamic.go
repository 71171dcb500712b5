package server

import (
	"net/http"
	"sync/atomic"
)

// swapHandler is the mount point a config reload swaps the API surface
// through. Requests always see a complete handler: the old one keeps
// serving until the swap, in-flight requests finish on whichever handler
// they started with.
type swapHandler struct {
	current atomic.Pointer[http.Handler]
}

func newSwapHandler(h http.Handler) *swapHandler {
	s := &swapHandler{}
	s.current.Store(&h)
	return s
}

// Swap installs the replacement handler. Nil is ignored so a failed
// rebuild leaves the previous surface serving.
func (s *swapHandler) Swap(h http.Handler) {
	if h == nil {
		return
	}
	s.current.Store(&h)
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := s.current.Load(); h != nil {
		(*h).ServeHTTP(w, r)
		return
	}
	http.Error(w, "service unavailable", http.StatusServiceUnavailable)
}
