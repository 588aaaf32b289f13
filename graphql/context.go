package graphql

import (
	"context"

	"gorm.io/gorm"

	"warehouse.GO/core/auth"
)

type contextKey string

const (
	ctxKeyCaller contextKey = "caller"
	ctxKeyDB     contextKey = "db"
)

// WithCaller attaches the authenticated principal for the resolvers'
// permission checks.
func WithCaller(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, p)
}

// CallerFromContext returns nil for anonymous requests.
func CallerFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(ctxKeyCaller).(*auth.Principal)
	return p
}

// WithDB hands the database to _extension resolvers, which are registered
// before any connection exists.
func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, ctxKeyDB, db)
}

func DBFromContext(ctx context.Context) *gorm.DB {
	db, _ := ctx.Value(ctxKeyDB).(*gorm.DB)
	return db
}

// Require fails unless the caller holds perm.
func Require(ctx context.Context, perm string) error {
	if !auth.Allows(CallerFromContext(ctx), perm) {
		return &ForbiddenError{Permission: perm}
	}
	return nil
}

type ForbiddenError struct {
	Permission string
}

func (e *ForbiddenError) Error() string { return "permission denied: " + e.Permission }
