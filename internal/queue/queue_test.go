package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
)

func sampleBooking() model.Booking {
	table := uint64(4)
	return model.Booking{
		ID:                 "6a1c2d44-1b7e-4c55-9d1e-7f2b550f3a9c",
		TenantID:           "t1",
		TableID:            &table,
		GuestFirstName:     "Ada",
		GuestLastName:      "Lovelace",
		GuestEmail:         "ada@example.com",
		PartySize:          2,
		BookingTime:        time.Date(2025, 6, 3, 19, 0, 0, 0, time.UTC),
		Status:             model.StatusConfirmed,
		DepositAmountCents: 2500,
		DepositPaid:        true,
	}
}

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ev := NewBookingEvent(EventBookingStatusChanged, sampleBooking(), model.StatusPending, at)
	assert.Equal(t, "CONF0F3A9C", ev.ConfirmationNumber)
	assert.Equal(t, "pending", ev.PreviousStatus)
	assert.Equal(t, uint64(4), ev.TableID)
	assert.Equal(t, "2025-06-03T19:00:00Z", ev.BookingTime)
	assert.Equal(t, "Ada Lovelace", ev.GuestName)
}

func TestConsumerHandleAppendsLine(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("", dir, zap.NewNop())

	ev := NewBookingEvent(EventBookingCreated, sampleBooking(), "", time.Now())
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
	assert.Contains(t, string(data), "booking.created | booking_id=6a1c2d44")
	assert.Contains(t, string(data), `guest="Ada Lovelace"`)
}

func TestConsumerHandleRejectsGarbage(t *testing.T) {
	c := NewConsumer("", t.TempDir(), nil)
	assert.Error(t, c.Handle([]byte("{")))
	assert.Error(t, c.Handle([]byte(`{"type":"booking.created"}`)))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
