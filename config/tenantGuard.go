package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/loyalty_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const bankColumn = "bank_id"

// TenantGuardPlugin adds "bank_id = ?" to queries, row scans, updates and deletes
// on any model with a bank_id column, using the bank carried by the statement's context.
// Raw SQL is not rewritten; reports and the outbox claim filter on bank_id themselves.
// Platform admins and SkipTenantScope contexts see every bank.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "bank_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []struct {
		name     string
		register func() error
	}{
		{"query", func() error { return cb.Query().Before("gorm:query").Register("bank_guard:query", scopeToBank) }},
		{"row", func() error { return cb.Row().Before("gorm:row").Register("bank_guard:row", scopeToBank) }},
		{"update", func() error { return cb.Update().Before("gorm:update").Register("bank_guard:update", scopeToBank) }},
		{"delete", func() error { return cb.Delete().Before("gorm:delete").Register("bank_guard:delete", scopeToBank) }},
	}
	for _, r := range registrations {
		if err := r.register(); err != nil {
			return err
		}
	}
	return nil
}

// ScopedBank returns the bank a statement under ctx is limited to.
// ok is false for admins, internal jobs and contexts without a bank.
func ScopedBank(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if skip, _ := appctx.GetBool(ctx, appctx.ContextKeySkipTenantScope); skip {
		return "", false
	}
	if admin, _ := appctx.GetBool(ctx, appctx.ContextKeyIsAdmin); admin {
		return "", false
	}
	bankId, _ := appctx.GetString(ctx, appctx.ContextKeyBankId)
	return bankId, bankId != ""
}

func scopeToBank(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Schema == nil {
		return
	}
	bankId, ok := ScopedBank(stmt.Context)
	if !ok {
		return
	}
	if _, hasColumn := stmt.Schema.FieldsByDBName[bankColumn]; !hasColumn {
		return
	}
	if where, ok := stmt.Clauses["WHERE"].Expression.(clause.Where); ok && filtersBank(where.Exprs...) {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: stmt.Table, Name: bankColumn}, Value: bankId},
	}})
}

// filtersBank reports whether any expression already constrains bank_id.
func filtersBank(exprs ...clause.Expression) bool {
	for _, e := range exprs {
		switch v := e.(type) {
		case clause.Eq:
			if isBankColumn(v.Column) {
				return true
			}
		case clause.Neq:
			if isBankColumn(v.Column) {
				return true
			}
		case clause.IN:
			if isBankColumn(v.Column) {
				return true
			}
		case clause.AndConditions:
			if filtersBank(v.Exprs...) {
				return true
			}
		case clause.OrConditions:
			if filtersBank(v.Exprs...) {
				return true
			}
		case clause.Expr:
			if strings.Contains(strings.ToLower(v.SQL), bankColumn) {
				return true
			}
		case clause.NamedExpr:
			if strings.Contains(strings.ToLower(v.SQL), bankColumn) {
				return true
			}
		}
	}
	return false
}

func isBankColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, bankColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, bankColumn)
	}
	return false
}
