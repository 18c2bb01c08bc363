// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and the handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by another tenant or guest.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// the row is no longer in the expected state (compare-and-set miss).
var ErrConflict = errors.New("conflict")

// ErrDuplicateKey is returned when an insert violates a unique index,
// e.g. a second hold with an idempotency key that is already taken.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrSlotUnavailable is returned when none of the candidate tables is
// free for the requested interval any more.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrHoldExpired is returned when a hold can no longer be converted
// because it expired or was released.
var ErrHoldExpired = errors.New("hold expired")

// ErrHoldConsumed is returned when a hold was already converted into a
// booking.
var ErrHoldConsumed = errors.New("hold already converted")

// ErrDepositConsumed is returned when the payment intent of a new
// booking already backs another booking.
var ErrDepositConsumed = errors.New("deposit already used by another booking")

// ErrEmailExists is returned when a staff account with the email exists.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is the server error number for unique violations.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// duplicateOn reports whether err is a unique violation of the named
// index.  The server names the index in the message.
func duplicateOn(err error, index string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry && strings.Contains(me.Message, index)
}

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors
// through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
