package session

import (
	"context"
	"errors"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/metrics"
)

const (
	readBufSize  = 4096
	maxChunkSize = 64 * 1024
)

// readLoop polls s.dev until ctx is cancelled or the device fails, emitting
// every non-empty batch to the handler.
func (c *Controller) readLoop(ctx context.Context, s *Session) ClosedEvent {
	buf := make([]byte, readBufSize)
	waiter, _ := s.dev.(serial.ReadWaiter)

	var timer *time.Timer
	if waiter == nil {
		timer = time.NewTimer(c.interval)
		defer timer.Stop()
	}

	for {
		if ctx.Err() != nil {
			return ClosedEvent{Port: s.desc, Reason: CloseRequested}
		}

		if waiter != nil {
			ready, err := waiter.WaitReadable(ctx, c.interval)
			if err != nil {
				if ctx.Err() != nil {
					return ClosedEvent{Port: s.desc, Reason: CloseRequested}
				}
				return c.readFailure(s, err)
			}
			if !ready {
				continue
			}
		}

		data, err := drain(s.dev, buf)
		if len(data) > 0 {
			c.emit(s, data)
		}
		// readable with nothing to read is end of file
		if err == nil && waiter != nil && len(data) == 0 {
			err = serial.ErrDeviceGone
		}
		if err != nil {
			if ctx.Err() != nil {
				return ClosedEvent{Port: s.desc, Reason: CloseRequested}
			}
			return c.readFailure(s, err)
		}

		if waiter == nil {
			timer.Reset(c.interval)
			select {
			case <-ctx.Done():
				return ClosedEvent{Port: s.desc, Reason: CloseRequested}
			case <-timer.C:
			}
		}
	}
}

// drain reads until the device has nothing more pending. Reads that fill buf
// are followed by another read; zero-length reads end the batch.
func drain(dev Device, buf []byte) ([]byte, error) {
	var out []byte
	for len(out) < maxChunkSize {
		n, err := dev.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			return out, err
		}
		if n < len(buf) {
			break
		}
	}
	return out, nil
}

func (c *Controller) emit(s *Session, data []byte) {
	s.seq++
	metrics.AddRx(len(data))
	c.handler.OnBytesReceived(Chunk{Seq: s.seq, Data: data, At: time.Now()})
}

// readFailure classifies a read error. A vanished device is distinguished
// from other read errors; both end the session.
func (c *Controller) readFailure(s *Session, err error) ClosedEvent {
	reason := CloseReadError
	if errors.Is(err, serial.ErrDeviceGone) || errors.Is(err, serial.ErrPortClosed) {
		reason = CloseDeviceGone
	}
	return ClosedEvent{
		Port:   s.desc,
		Reason: reason,
		Err:    &serial.DeviceError{Op: serial.OpRead, Port: s.desc.Name, Err: err},
	}
}
