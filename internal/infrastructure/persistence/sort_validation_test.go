package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty defaults to DESC", "", "DESC"},
		{"uppercase ASC", "ASC", "ASC"},
		{"lowercase asc", "asc", "ASC"},
		{"uppercase DESC", "DESC", "DESC"},
		{"lowercase desc", "desc", "DESC"},
		{"padded asc", "  asc  ", "ASC"},
		{"whitespace only", "   ", "DESC"},
		{"garbage defaults to DESC", "INVALID", "DESC"},
		{"injection defaults to DESC", "ASC; DROP TABLE charges;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := map[string]bool{
		"id":         true,
		"created_at": true,
		"updated_at": true,
		"due_date":   true,
	}

	tests := []struct {
		name         string
		input        string
		defaultField string
		want         string
	}{
		{"empty returns default", "", "created_at", "created_at"},
		{"allowed field passes", "due_date", "created_at", "due_date"},
		{"allowed id passes", "id", "created_at", "id"},
		{"unknown field returns default", "balance", "created_at", "created_at"},
		{"injection returns default", "id; DROP TABLE charges;--", "created_at", "created_at"},
		{"case sensitive", "DUE_DATE", "created_at", "created_at"},
		{"whitespace only returns default", "   ", "created_at", "created_at"},
		{"padded allowed field passes", "  due_date  ", "created_at", "due_date"},
		{"embedded space returns default", "due_date charges", "created_at", "created_at"},
		{"quote returns default", "due_date'--", "created_at", "created_at"},
		{"empty default with allowed field", "due_date", "", "due_date"},
		{"empty default with unknown field", "balance", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, allowed, tt.defaultField))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"PropertySortFields":   PropertySortFields,
		"TenantSortFields":     TenantSortFields,
		"LeaseSortFields":      LeaseSortFields,
		"ChargeSortFields":     ChargeSortFields,
		"PaymentSortFields":    PaymentSortFields,
		"AuditEntrySortFields": AuditEntrySortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for field := range CommonSortFields {
				assert.True(t, whitelist[field], "%s should allow %q", name, field)
			}
			assert.Greater(t, len(whitelist), len(CommonSortFields),
				"%s should allow entity-specific fields beyond the common set", name)
		})
	}
}

func TestSortValidationRejectsInjectionPayloads(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE charges;--",
		"id' OR '1'='1",
		"id\"; DROP TABLE charges;--",
		"id UNION SELECT * FROM payments",
		"id ORDER BY 1",
		"id, (SELECT amount FROM payments)",
		"CASE WHEN 1=1 THEN id ELSE due_date END",
		"id/**/;DROP TABLE charges",
		"id\n; DROP TABLE charges",
		"id\t; DROP TABLE charges",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range payloads {
		t.Run(payload[:min(len(payload), 30)], func(t *testing.T) {
			assert.Equal(t, "created_at", ValidateSortField(payload, ChargeSortFields, "created_at"))
			assert.Equal(t, "DESC", ValidateSortOrder(payload))
		})
	}
}
