package flow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/api"
)

// Verification is the background read-back of a confirmed booking.  Its
// result never changes the outcome already reported to the guest.
type Verification struct {
	done chan struct{}
	errc chan error
	err  error
}

// Wait blocks until the read-back finished and returns its error.
func (v *Verification) Wait() error {
	<-v.done
	return v.err
}

// Err delivers the read-back error, if any, and is closed afterwards.
func (v *Verification) Err() <-chan error { return v.errc }

// Done is closed when the read-back finished.
func (v *Verification) Done() <-chan struct{} { return v.done }

func (w *Workflow) verify(want api.Booking) *Verification {
	v := &Verification{done: make(chan struct{}), errc: make(chan error, 1)}
	go func() {
		defer close(v.done)
		defer close(v.errc)

		if w.verifyDelay > 0 {
			t := time.NewTimer(w.verifyDelay)
			<-t.C
		}
		// no caller context: the guest may already have moved on
		got, err := w.api.Reservation(context.Background(), want.ID)
		switch {
		case err != nil:
			v.err = fmt.Errorf("%w: read back %s: %w", ErrVerificationMismatch, want.ID, err)
		case got.Status != want.Status:
			v.err = fmt.Errorf("%w: %s has status %q, expected %q", ErrVerificationMismatch, want.ID, got.Status, want.Status)
		}
		if v.err != nil {
			w.log.Warn("booking verification failed", zap.String("booking_id", want.ID), zap.Error(v.err))
			v.errc <- v.err
			return
		}
		w.log.Debug("booking verified", zap.String("booking_id", want.ID))
	}()
	return v
}
