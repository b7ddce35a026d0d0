package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool satisfying DBTX. Tests should call
// ExpectationsWereMet at the end.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool()
}

var _ DBTX = (pgxmock.PgxPoolIface)(nil)
