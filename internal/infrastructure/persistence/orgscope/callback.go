package orgscope

import (
	"strings"

	"github.com/propfolio/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrgCallback provides GORM callback hooks for automatic org filtering
type OrgCallback struct {
	orgColumn string
	required  bool
}

// NewOrgCallback creates a new org callback handler
func NewOrgCallback(orgColumn string, required bool) *OrgCallback {
	if orgColumn == "" {
		orgColumn = "org_id"
	}
	return &OrgCallback{
		orgColumn: orgColumn,
		required:  required,
	}
}

// RegisterCallbacks registers org callbacks with GORM
func (tc *OrgCallback) RegisterCallbacks(db *gorm.DB) {
	// Register query callback - add org filter
	_ = db.Callback().Query().Before("gorm:query").Register("orgscope:before_query", tc.beforeQuery)

	// Register update callback - ensure org filter
	_ = db.Callback().Update().Before("gorm:update").Register("orgscope:before_update", tc.beforeUpdate)

	// Register delete callback - ensure org filter
	_ = db.Callback().Delete().Before("gorm:delete").Register("orgscope:before_delete", tc.beforeDelete)

	// Register row query callback - add org filter
	_ = db.Callback().Row().Before("gorm:row").Register("orgscope:before_row", tc.beforeQuery)

	// Note: Create callback is not registered because org_id should be set
	// explicitly by the application when creating entities
}

// beforeQuery adds org filter to SELECT queries
func (tc *OrgCallback) beforeQuery(db *gorm.DB) {
	tc.addOrgFilter(db)
}

// beforeUpdate adds org filter to UPDATE queries
func (tc *OrgCallback) beforeUpdate(db *gorm.DB) {
	tc.addOrgFilter(db)
}

// beforeDelete adds org filter to DELETE queries
func (tc *OrgCallback) beforeDelete(db *gorm.DB) {
	tc.addOrgFilter(db)
}

// addOrgFilter adds org filtering to the query
func (tc *OrgCallback) addOrgFilter(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}

	// Skip if unscoped
	if db.Statement.Unscoped {
		return
	}

	// Skip if already has org condition
	if tc.hasOrgCondition(db) {
		return
	}

	// Get org ID from context
	orgID := logger.GetOrgID(db.Statement.Context)
	if orgID == "" {
		if tc.required {
			_ = db.AddError(ErrOrgIDRequired)
		}
		return
	}

	// Validate UUID format
	if _, err := uuid.Parse(orgID); err != nil {
		_ = db.AddError(ErrInvalidOrgID)
		return
	}

	// Add org filter using GORM's clause
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.orgColumn},
				Value:  orgID,
			},
		},
	})
}

// hasOrgCondition checks if org_id condition is already present
func (tc *OrgCallback) hasOrgCondition(db *gorm.DB) bool {
	// Check if there's a manual scope applied via Unscoped
	if db.Statement.Unscoped {
		return true
	}

	// Check existing where clauses for org_id
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if tc.exprContainsOrg(expr) {
					return true
				}
			}
		}
	}

	// Also check the built SQL if available
	sql := db.Statement.SQL.String()
	if sql != "" && strings.Contains(sql, tc.orgColumn) {
		return true
	}

	return false
}

// exprContainsOrg checks if an expression contains org_id column
func (tc *OrgCallback) exprContainsOrg(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.orgColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.orgColumn
		}
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsOrg(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsOrg(cond) {
				return true
			}
		}
	}
	return false
}

// EnableAutoOrgFilter enables automatic org filtering on a GORM DB instance
// This registers callbacks that automatically add org_id filtering to all queries
func EnableAutoOrgFilter(db *gorm.DB, required bool) {
	tc := NewOrgCallback("org_id", required)
	tc.RegisterCallbacks(db)
}

// DisableAutoOrgFilter removes the org callbacks (not recommended in production)
func DisableAutoOrgFilter(db *gorm.DB) {
	// Note: GORM doesn't provide a clean way to remove callbacks
	// This is mainly for testing purposes
	_ = db.Callback().Query().Remove("orgscope:before_query")
	_ = db.Callback().Update().Remove("orgscope:before_update")
	_ = db.Callback().Delete().Remove("orgscope:before_delete")
	_ = db.Callback().Row().Remove("orgscope:before_row")
}
