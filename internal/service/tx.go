package service

import (
	"context"
	"errors"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// noEncontrado turns a missing row into a NotFound error and passes anything
// else through untouched.
func noEncontrado(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(format, args...)
	}
	return err
}

var (
	cien       = decimal.NewFromInt(100)
	tolerancia = decimal.NewFromFloat(0.01)
)

func redondear(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
