package utils

import (
	"context"

	"github.com/agentbank/ledger_backend/appctx"
)

// Alias the shared context key type so callers only import utils.
type contextKey = appctx.ContextKey

var (
	ContextKeyBankId          = appctx.ContextKeyBankId
	ContextKeyUserId          = appctx.ContextKeyUserId
	ContextKeyUserRole        = appctx.ContextKeyUserRole
	ContextKeyCorrelationId   = appctx.ContextKeyCorrelationId
	ContextKeySkipTenantScope = appctx.ContextKeySkipTenantScope
)

func GetUserIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserId)
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetBankIdInContext(ctx context.Context, bankId string) context.Context {
	return appctx.Set(ctx, ContextKeyBankId, bankId)
}

func SetUserIdInContext(ctx context.Context, userId string) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetUserRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyUserRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipTenantScope, skip)
}

// GetPerformerFromContext returns the authenticated user id, or "system" for tools.
func GetPerformerFromContext(ctx context.Context) string {
	if v, ok := GetUserIdFromContext(ctx); ok && v != "" {
		return v
	}
	return "system"
}
