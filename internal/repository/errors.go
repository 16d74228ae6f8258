// Package repository implements the persistence collaborator on top of
// database/sql and MySQL. The Store type satisfies the engine's
// Repository interface; the per-entity repositories serve the plain
// CRUD paths of the HTTP layer.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the engine cares about.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
)

// ErrEmailTaken is returned when registering with an email that already
// exists. Handlers translate this into an HTTP 409 response.
var ErrEmailTaken = errors.New("email already registered")

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func isLockWaitTimeout(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlLockWaitTimeout
}
