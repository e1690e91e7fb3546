package persistence

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type chargeRow struct {
	ID     uint
	OrgID  string
	Status string
}

// newMockDatabase backs a Database with a sqlmock connection. The connection
// is closed via t.Cleanup; sql.DB.Close is idempotent so Close tests are safe.
// monitorPings enables sqlmock ping expectations for tests that exercise Ping.
func newMockDatabase(t *testing.T, monitorPings bool) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	if monitorPings {
		// gorm pings synchronously inside Open, so the expectation must
		// already be registered here
		mock.ExpectPing()
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock
}

func TestDatabase_WithOrg(t *testing.T) {
	t.Run("scopes queries to the org", func(t *testing.T) {
		db, mock := newMockDatabase(t, false)

		mock.ExpectQuery(`SELECT \* FROM "charge_rows" WHERE org_id = \$1`).
			WithArgs("org-123").
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "status"}).
				AddRow(1, "org-123", "OPEN"))

		var charges []chargeRow
		require.NoError(t, db.WithOrg("org-123").Find(&charges).Error)
		require.Len(t, charges, 1)
		assert.Equal(t, "org-123", charges[0].OrgID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves the original handle unscoped", func(t *testing.T) {
		db, _ := newMockDatabase(t, false)
		original := db.DB

		scoped := db.WithOrg("org-456")

		assert.NotEqual(t, original, scoped)
		assert.Equal(t, original, db.DB)
	})

	t.Run("panics on empty org ID", func(t *testing.T) {
		db, _ := newMockDatabase(t, false)

		assert.Panics(t, func() { db.WithOrg("") })
	})

	t.Run("passes hostile org IDs as bind parameters", func(t *testing.T) {
		db, mock := newMockDatabase(t, false)
		orgID := "org'; DROP TABLE charges; --"

		mock.ExpectQuery(`SELECT \* FROM "charge_rows" WHERE org_id = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "status"}))

		var charges []chargeRow
		require.NoError(t, db.WithOrg(orgID).Find(&charges).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("different orgs get distinct scopes", func(t *testing.T) {
		db, _ := newMockDatabase(t, false)

		assert.NotEqual(t, db.WithOrg("org-1"), db.WithOrg("org-2"))
	})
}

func TestDatabase_WithOrg_ChainedQueries(t *testing.T) {
	tests := []struct {
		name      string
		wantQuery string
		wantArgs  []any
		run       func(scoped *gorm.DB) error
	}{
		{
			name:      "additional where clause",
			wantQuery: `SELECT \* FROM "charge_rows" WHERE org_id = \$1 AND status = \$2`,
			wantArgs:  []any{"org-789", "OPEN"},
			run: func(scoped *gorm.DB) error {
				var charges []chargeRow
				return scoped.Where("status = ?", "OPEN").Find(&charges).Error
			},
		},
		{
			name:      "ordering",
			wantQuery: `SELECT \* FROM "charge_rows" WHERE org_id = \$1 ORDER BY due_date ASC`,
			wantArgs:  []any{"org-789"},
			run: func(scoped *gorm.DB) error {
				var charges []chargeRow
				return scoped.Order("due_date ASC").Find(&charges).Error
			},
		},
		{
			name:      "limit and offset",
			wantQuery: `SELECT \* FROM "charge_rows" WHERE org_id = \$1 LIMIT \$2 OFFSET \$3`,
			wantArgs:  []any{"org-789", 10, 5},
			run: func(scoped *gorm.DB) error {
				var charges []chargeRow
				return scoped.Limit(10).Offset(5).Find(&charges).Error
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDatabase(t, false)

			args := make([]driver.Value, 0, len(tt.wantArgs))
			for _, a := range tt.wantArgs {
				args = append(args, a)
			}
			mock.ExpectQuery(tt.wantQuery).
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "status"}))

			require.NoError(t, tt.run(db.WithOrg("org-789")))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDatabase(t, false)

		mock.ExpectBegin()
		// postgres INSERTs go through Query with a RETURNING clause
		mock.ExpectQuery(`INSERT INTO "charge_rows"`).
			WithArgs("org-1", "OPEN").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&chargeRow{OrgID: "org-1", Status: "OPEN"}).Error
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMockDatabase(t, false)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := newMockDatabase(t, true)

	// gorm may ping while opening; the second expectation covers db.Ping
	mock.ExpectPing()
	mock.ExpectPing()

	assert.NoError(t, db.Ping())
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t, false)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _ := newMockDatabase(t, false)

	stats, err := db.Stats()

	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.GreaterOrEqual(t, stats.WaitCount, int64(0))
	assert.GreaterOrEqual(t, stats.WaitDuration, time.Duration(0))
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}
