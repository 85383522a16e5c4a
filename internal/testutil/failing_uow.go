package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alexanderramin/arbor/internal/db"
)

// FailingUoW is a UnitOfWork whose transactions fail every ExecContext call
// whose SQL contains Match. It lets tests break a multi-write transaction
// at a chosen statement and check that earlier writes roll back.
//
// Reads and RETURNING queries pass through untouched.
type FailingUoW struct {
	DB    *sql.DB
	Match string
	Err   error

	hits atomic.Int32
}

// Hits reports how many statements were failed.
func (u *FailingUoW) Hits() int { return int(u.hits.Load()) }

func (u *FailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failingTx{DBTX: tx, uow: u}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

type failingTx struct {
	db.DBTX
	uow *FailingUoW
}

func (f *failingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.uow.Match != "" && strings.Contains(query, f.uow.Match) {
		f.uow.hits.Add(1)
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
