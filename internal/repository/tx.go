package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// conn picks the running transaction when there is one, else the repository
// connection. Every method taking a tx accepts nil.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// forUpdate adds SELECT ... FOR UPDATE. Dialects without row locks drop it.
func forUpdate(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func paginar(page, limit, maxLimit, defLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defLimit
	}
	return (page - 1) * limit, limit
}
