package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// infra-defined handle (pgx.Tx for Postgres) to repositories through `tx`.
//
// Repositories accept nil for the non-transactional path. When they see a real
// transaction they lock the rows they read (SELECT ... FOR UPDATE), which is how
// read-then-write sequences on a single payment stay atomic.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
