package config

import (
	"context"
	"strings"

	"github.com/agentbank/ledger_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin scopes queries/updates/deletes to the request's bank_id when the model
// has a bank_id column.
//
// NOTE:
// - This does NOT apply to Raw/Exec SQL. Those must include bank_id manually.
// - Bypass is explicit via appctx.ContextKeySkipTenantScope.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassTenantScope(ctx) {
		return
	}
	bankID := bankIdFromContext(ctx)
	if bankID == "" {
		return
	}

	// Only apply if the current model/table includes a bank_id column.
	if db.Statement.Schema == nil {
		return
	}
	if _, ok := db.Statement.Schema.FieldsByDBName[tenantColumn]; !ok {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasBankID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: tenantColumn},
				Value:  bankID,
			},
		},
	})
}

const tenantColumn = "bank_id"

func bankIdFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyBankId); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassTenantScope(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope)
	return ok && v
}

func whereHasBankID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBankID(e) {
			return true
		}
	}
	return false
}

func exprHasBankID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsBankID(v.Column)
	case clause.Neq:
		return colIsBankID(v.Column)
	case clause.Gt:
		return colIsBankID(v.Column)
	case clause.Gte:
		return colIsBankID(v.Column)
	case clause.Lt:
		return colIsBankID(v.Column)
	case clause.Lte:
		return colIsBankID(v.Column)
	case clause.IN:
		return colIsBankID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasBankID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasBankID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), tenantColumn)
	default:
		return false
	}
}

func colIsBankID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, tenantColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, tenantColumn)
	default:
		return false
	}
}
