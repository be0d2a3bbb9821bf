// Package tenant carries per-request tenant scope.
// Every excise table carries a tenant_id column; middleware resolves the tenant
// once per request and domain code reads it from context.
package tenant

import (
	"context"
	"errors"

	"brauer/internal/core/id"
	"brauer/internal/core/tx"
)

type ctxKey int

const (
	tenantKey ctxKey = iota
	txManagerKey
)

var (
	// ErrNoTenantInContext is returned when tenant scope was never resolved.
	ErrNoTenantInContext = errors.New("tenant not found in context")
	// ErrNoTxManager is returned when the transaction manager was never injected.
	ErrNoTxManager = errors.New("transaction manager not found in context")
)

// WithTenant stores the resolved tenant ID in context.
func WithTenant(ctx context.Context, tenantID id.ID) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// GetTenant retrieves the tenant ID from context.
func GetTenant(ctx context.Context) (id.ID, error) {
	tenantID, ok := ctx.Value(tenantKey).(id.ID)
	if !ok || id.IsNil(tenantID) {
		return id.Nil(), ErrNoTenantInContext
	}
	return tenantID, nil
}

// MustGetTenant retrieves the tenant ID or panics.
// Use where a missing tenant is a programming error (repos behind middleware).
func MustGetTenant(ctx context.Context) id.ID {
	tenantID, err := GetTenant(ctx)
	if err != nil {
		panic("tenant not in context: " + err.Error())
	}
	return tenantID
}

// WithTxManager stores the transaction manager in context.
func WithTxManager(ctx context.Context, txm tx.Manager) context.Context {
	return context.WithValue(ctx, txManagerKey, txm)
}

// GetTxManager retrieves the transaction manager from context.
func GetTxManager(ctx context.Context) (tx.Manager, error) {
	txm, ok := ctx.Value(txManagerKey).(tx.Manager)
	if !ok || txm == nil {
		return nil, ErrNoTxManager
	}
	return txm, nil
}

// MustGetTxManager retrieves the transaction manager or panics.
func MustGetTxManager(ctx context.Context) tx.Manager {
	txm, err := GetTxManager(ctx)
	if err != nil {
		panic("TxManager not in context: " + err.Error())
	}
	return txm
}
