package session

// Handler receives session events. Both methods run on the reader goroutine,
// in order, and must not call Controller.Close (it waits for that goroutine).
type Handler interface {
	OnBytesReceived(Chunk)
	OnSessionClosed(ClosedEvent)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	BytesReceived func(Chunk)
	SessionClosed func(ClosedEvent)
}

func (h HandlerFuncs) OnBytesReceived(c Chunk) {
	if h.BytesReceived != nil {
		h.BytesReceived(c)
	}
}

func (h HandlerFuncs) OnSessionClosed(e ClosedEvent) {
	if h.SessionClosed != nil {
		h.SessionClosed(e)
	}
}

type nopHandler struct{}

func (nopHandler) OnBytesReceived(Chunk)       {}
func (nopHandler) OnSessionClosed(ClosedEvent) {}
