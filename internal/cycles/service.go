package cycles

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/report"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type closeLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type artifactStore interface {
	Store(ctx context.Context, data []byte, name, folder, contentType string) (string, error)
}

// Service settles approved sales into durable cycles and answers cycle
// reads.
type Service interface {
	CurrentStats(ctx context.Context) (CurrentStats, error)
	List(ctx context.Context, input ListInput) ([]models.Cycle, string, error)
	Get(ctx context.Context, id int64) (*models.Cycle, error)
	Close(ctx context.Context, actor types.Actor) (*models.Cycle, error)
}

type service struct {
	repo      Repository
	salesRepo sales.Repository
	artifacts artifactStore
	lock      closeLock
	tx        txRunner
	log       *logger.Logger
	now       func() time.Time
}

// CurrentStats is the virtual OPEN cycle: aggregates over everything that
// would settle if a close ran right now. Nothing here is persisted.
type CurrentStats struct {
	Status           enums.CycleStatus `json:"status"`
	StartDate        *time.Time        `json:"start_date"`
	TotalSales       decimal.Decimal   `json:"total_sales"`
	TotalCommissions decimal.Decimal   `json:"total_commissions"`
	SalesCount       int               `json:"sales_count"`
}

// ListInput paginates the closed cycle history.
type ListInput struct {
	Limit  int
	Cursor string
}

// NewService wires the cycle settlement service. The artifact store may be
// nil when report storage is not configured; closes then proceed without a
// report locator.
func NewService(
	repo Repository,
	salesRepo sales.Repository,
	artifacts artifactStore,
	lock closeLock,
	tx txRunner,
	log *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cycles repository required")
	}
	if salesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if lock == nil {
		return nil, fmt.Errorf("close lock required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		salesRepo: salesRepo,
		artifacts: artifacts,
		lock:      lock,
		tx:        tx,
		log:       log,
		now:       time.Now,
	}, nil
}

func (s *service) CurrentStats(ctx context.Context) (CurrentStats, error) {
	selection, err := s.salesRepo.ListApprovedUnsettled(ctx)
	if err != nil {
		return CurrentStats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unsettled sales")
	}

	stats := CurrentStats{
		Status:           enums.CycleStatusOpen,
		TotalSales:       decimal.Zero,
		TotalCommissions: decimal.Zero,
	}
	for i := range selection {
		sale := &selection[i]
		stats.TotalSales = stats.TotalSales.Add(sale.Total)
		stats.TotalCommissions = stats.TotalCommissions.Add(sale.CommissionAmount)
		stats.SalesCount++
		if stats.StartDate == nil || sale.OrderDate.Before(*stats.StartDate) {
			start := sale.OrderDate
			stats.StartDate = &start
		}
	}
	return stats, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Cycle, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, input.Limit, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cycles")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Cycle, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cycle id required")
	}
	cycle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cycle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cycle")
	}
	return cycle, nil
}

// Close settles every approved, unsettled sale into one new CLOSED cycle.
// The whole operation runs under a single-flight lock and one transaction:
// the cycle row and the settled flags commit together or not at all.
// Report rendering and storage are soft steps; their failure is logged and
// the close proceeds without a locator.
func (s *service) Close(ctx context.Context, actor types.Actor) (*models.Cycle, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators close cycles")
	}

	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire close lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a cycle close is already in progress")
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.log.Error(ctx, "release close lock", relErr)
		}
	}()

	closedAt := s.now()
	var cycle *models.Cycle
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		salesRepo := s.salesRepo.WithTx(tx)

		// The selection re-runs inside the transaction so anything settled
		// between lock acquisition and here drops out.
		selection, err := salesRepo.ListApprovedUnsettled(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unsettled sales")
		}
		if len(selection) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "nothing to close")
		}

		startDate := closedAt
		totalSales := decimal.Zero
		totalCommissions := decimal.Zero
		ids := make([]int64, 0, len(selection))
		for i := range selection {
			sale := &selection[i]
			ids = append(ids, sale.ID)
			totalSales = totalSales.Add(sale.Total)
			totalCommissions = totalCommissions.Add(sale.CommissionAmount)
			if sale.OrderDate.Before(startDate) {
				startDate = sale.OrderDate
			}
		}

		reportURL := s.storeReport(ctx, selection, startDate, closedAt)

		cycle = &models.Cycle{
			StartDate:        startDate,
			EndDate:          closedAt,
			TotalSales:       totalSales,
			TotalCommissions: totalCommissions,
			SalesCount:       len(selection),
			ReportURL:        reportURL,
			Status:           enums.CycleStatusClosed,
		}
		if err := s.repo.WithTx(tx).Create(ctx, cycle); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cycle")
		}
		if err := salesRepo.MarkSettled(ctx, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark sales settled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

func (s *service) storeReport(ctx context.Context, selection []models.Sale, startDate, closedAt time.Time) *string {
	if s.artifacts == nil {
		return nil
	}

	rows := make([]report.SaleRow, 0, len(selection))
	for i := range selection {
		sale := &selection[i]
		sellerName := sale.SellerID.String()
		sellerEmail := ""
		if sale.Seller != nil {
			sellerName = sale.Seller.FullName
			sellerEmail = sale.Seller.Email
		}
		rows = append(rows, report.SaleRow{
			SellerName:    sellerName,
			SellerEmail:   sellerEmail,
			OrderLabel:    sale.OrderLabel(),
			OrderDate:     sale.OrderDate,
			Total:         sale.Total,
			CommissionPct: sale.CommissionPercentage,
			Commission:    sale.CommissionAmount,
		})
	}

	data, err := report.RenderCSV(report.CycleReport{Start: startDate, End: closedAt, Rows: rows})
	if err != nil {
		s.log.Error(ctx, "render cycle report", err)
		return nil
	}

	locator, err := s.artifacts.Store(ctx, data, report.FileName(closedAt), "cycles", "text/csv")
	if err != nil {
		s.log.Error(ctx, "store cycle report", err)
		return nil
	}
	return &locator
}
