package cycles

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
)

func setupCyclesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS cycles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  total_sales NUMERIC NOT NULL DEFAULT 0,
  total_commissions NUMERIC NOT NULL DEFAULT 0,
  sales_count INTEGER NOT NULL DEFAULT 0,
  report_url TEXT,
  status TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newClosedCycle(start, end time.Time, total string) *models.Cycle {
	return &models.Cycle{
		StartDate:        start,
		EndDate:          end,
		TotalSales:       decimal.RequireFromString(total),
		TotalCommissions: decimal.RequireFromString(total).Mul(decimal.RequireFromString("0.05")),
		SalesCount:       1,
		Status:           enums.CycleStatusClosed,
		CreatedAt:        end,
	}
}

func TestRepositoryCreateAndFindByID(t *testing.T) {
	repo := NewRepository(setupCyclesTestDB(t))
	ctx := context.Background()

	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	cycle := newClosedCycle(start, start.AddDate(0, 1, 0), "300.00")
	require.NoError(t, repo.Create(ctx, cycle))
	require.NotZero(t, cycle.ID)

	found, err := repo.FindByID(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CycleStatusClosed, found.Status)
	assert.True(t, found.TotalSales.Equal(decimal.RequireFromString("300.00")))

	_, err = repo.FindByID(ctx, 424242)
	assert.Equal(t, gorm.ErrRecordNotFound, err)
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	repo := NewRepository(setupCyclesTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	var created []*models.Cycle
	for i := 0; i < 3; i++ {
		cycle := newClosedCycle(base.AddDate(0, i, 0), base.AddDate(0, i+1, 0), "100.00")
		cycle.CreatedAt = base.AddDate(0, i+1, 0)
		require.NoError(t, repo.Create(ctx, cycle))
		created = append(created, cycle)
	}

	rows, err := repo.List(ctx, 2, nil)
	require.NoError(t, err)
	// Limit is padded by one row so callers can detect another page.
	require.Len(t, rows, 3)
	assert.Equal(t, created[2].ID, rows[0].ID)
	assert.Equal(t, created[1].ID, rows[1].ID)

	cursor := &pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID}
	next, err := repo.List(ctx, 2, cursor)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, created[0].ID, next[0].ID)
}
