package postgres

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// Transactor opens the atomic unit of work. Repositories built on the same
// *gorm.DB pick the transaction up from the context, so a service only has
// to wrap its steps in WithinTransaction.
type Transactor struct {
	DB *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{DB: db}
}

// WithinTransaction runs fn in a transaction that commits when fn returns
// nil and rolls back otherwise. Nested calls become savepoints.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, t.DB).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
