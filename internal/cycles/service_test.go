package cycles

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/types"
)

type fakeCycleRepo struct {
	cycles []*models.Cycle
	nextID int64
}

func (f *fakeCycleRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCycleRepo) Create(ctx context.Context, cycle *models.Cycle) error {
	f.nextID++
	cycle.ID = f.nextID
	f.cycles = append(f.cycles, cycle)
	return nil
}

func (f *fakeCycleRepo) FindByID(ctx context.Context, id int64) (*models.Cycle, error) {
	for _, cycle := range f.cycles {
		if cycle.ID == id {
			return cycle, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCycleRepo) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Cycle, error) {
	var rows []models.Cycle
	for _, cycle := range f.cycles {
		rows = append(rows, *cycle)
	}
	return rows, nil
}

type fakeSalesBatch struct {
	sales.Repository

	unsettled []models.Sale
	settled   []int64
}

func (f *fakeSalesBatch) WithTx(tx *gorm.DB) sales.Repository { return f }

func (f *fakeSalesBatch) ListApprovedUnsettled(ctx context.Context) ([]models.Sale, error) {
	var rows []models.Sale
	for _, sale := range f.unsettled {
		if !sale.CommissionSettled {
			rows = append(rows, sale)
		}
	}
	return rows, nil
}

func (f *fakeSalesBatch) MarkSettled(ctx context.Context, ids []int64) error {
	f.settled = append(f.settled, ids...)
	for i := range f.unsettled {
		for _, id := range ids {
			if f.unsettled[i].ID == id {
				f.unsettled[i].CommissionSettled = true
			}
		}
	}
	return nil
}

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type fakeArtifacts struct {
	data    []byte
	locator string
	err     error
}

func (f *fakeArtifacts) Store(ctx context.Context, data []byte, name, folder, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.data = data
	return f.locator, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc       Service
	repo      *fakeCycleRepo
	salesRepo *fakeSalesBatch
	lock      *fakeLock
	artifacts *fakeArtifacts
}

func newFixture(t *testing.T, unsettled []models.Sale) *fixture {
	t.Helper()
	f := &fixture{
		repo:      &fakeCycleRepo{},
		salesRepo: &fakeSalesBatch{unsettled: unsettled},
		lock:      &fakeLock{},
		artifacts: &fakeArtifacts{locator: "https://storage.example/cycles/report.csv"},
	}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(f.repo, f.salesRepo, f.artifacts, f.lock, fakeTx{}, log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func approvedSale(id int64, total, pct, commission string, orderDate time.Time) models.Sale {
	return models.Sale{
		ID:                   id,
		SellerID:             uuid.New(),
		CustomerName:         "Cliente",
		Status:               enums.SaleStatusApproved,
		PaymentStatus:        enums.PaymentStatusPaid,
		Total:                decimal.RequireFromString(total),
		CommissionPercentage: decimal.RequireFromString(pct),
		CommissionAmount:     decimal.RequireFromString(commission),
		OrderDate:            orderDate,
		Seller:               &models.User{FullName: "Ana Vendedora", Email: "ana@example.com"},
	}
}

func admin() types.Actor {
	return types.Actor{ID: uuid.New(), Roles: []enums.Role{enums.RoleAdmin}}
}

func TestCloseAggregatesAndSettles(t *testing.T) {
	older := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, []models.Sale{
		approvedSale(1, "100.00", "5.00", "5.00", newer),
		approvedSale(2, "200.00", "10.00", "20.00", older),
	})

	cycle, err := f.svc.Close(context.Background(), admin())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !cycle.TotalSales.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("total sales = %s", cycle.TotalSales)
	}
	if !cycle.TotalCommissions.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("total commissions = %s", cycle.TotalCommissions)
	}
	if cycle.SalesCount != 2 {
		t.Fatalf("sales count = %d", cycle.SalesCount)
	}
	if !cycle.StartDate.Equal(older) {
		t.Fatalf("start date = %v, want earliest order date %v", cycle.StartDate, older)
	}
	if cycle.Status != enums.CycleStatusClosed {
		t.Fatalf("status = %s", cycle.Status)
	}
	if cycle.ReportURL == nil || *cycle.ReportURL == "" {
		t.Fatal("report locator missing")
	}
	if len(f.salesRepo.settled) != 2 {
		t.Fatalf("settled ids = %v", f.salesRepo.settled)
	}
	if len(f.artifacts.data) == 0 {
		t.Fatal("report bytes never stored")
	}
	if f.lock.releases != 1 {
		t.Fatalf("lock released %d times", f.lock.releases)
	}
}

func TestSecondCloseHasNothingToSettle(t *testing.T) {
	f := newFixture(t, []models.Sale{
		approvedSale(1, "100.00", "5.00", "5.00", time.Now()),
	})

	if _, err := f.svc.Close(context.Background(), admin()); err != nil {
		t.Fatalf("first close: %v", err)
	}

	_, err := f.svc.Close(context.Background(), admin())
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second close: got %v, want state conflict", err)
	}
}

func TestCloseRequiresAdmin(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Close(context.Background(), types.Actor{ID: uuid.New(), Roles: []enums.Role{enums.RoleSeller}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}
	if f.lock.acquires != 0 {
		t.Fatal("lock touched before authorization")
	}
}

func TestCloseRefusesWhenLockHeld(t *testing.T) {
	f := newFixture(t, []models.Sale{approvedSale(1, "100.00", "5.00", "5.00", time.Now())})
	f.lock.held = true

	_, err := f.svc.Close(context.Background(), admin())
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
	if len(f.repo.cycles) != 0 || len(f.salesRepo.settled) != 0 {
		t.Fatal("close proceeded despite held lock")
	}
}

func TestCloseSurvivesReportStorageFailure(t *testing.T) {
	f := newFixture(t, []models.Sale{approvedSale(1, "100.00", "5.00", "5.00", time.Now())})
	f.artifacts.err = errors.New("bucket unavailable")

	cycle, err := f.svc.Close(context.Background(), admin())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if cycle.ReportURL != nil {
		t.Fatal("locator set despite storage failure")
	}
	if len(f.salesRepo.settled) != 1 {
		t.Fatal("sales not settled")
	}
}

func TestCurrentStatsVirtualOpenCycle(t *testing.T) {
	older := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, []models.Sale{
		approvedSale(1, "100.00", "5.00", "5.00", time.Now()),
		approvedSale(2, "50.00", "5.00", "2.50", older),
	})

	stats, err := f.svc.CurrentStats(context.Background())
	if err != nil {
		t.Fatalf("CurrentStats: %v", err)
	}
	if stats.Status != enums.CycleStatusOpen {
		t.Fatalf("status = %s", stats.Status)
	}
	if !stats.TotalSales.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("total sales = %s", stats.TotalSales)
	}
	if !stats.TotalCommissions.Equal(decimal.RequireFromString("7.50")) {
		t.Fatalf("total commissions = %s", stats.TotalCommissions)
	}
	if stats.SalesCount != 2 {
		t.Fatalf("count = %d", stats.SalesCount)
	}
	if stats.StartDate == nil || !stats.StartDate.Equal(older) {
		t.Fatalf("start date = %v", stats.StartDate)
	}
	if len(f.repo.cycles) != 0 {
		t.Fatal("stats must not persist anything")
	}
}

func TestCurrentStatsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	stats, err := f.svc.CurrentStats(context.Background())
	if err != nil {
		t.Fatalf("CurrentStats: %v", err)
	}
	if stats.SalesCount != 0 || stats.StartDate != nil {
		t.Fatalf("stats = %+v", stats)
	}
	if !stats.TotalSales.IsZero() {
		t.Fatalf("total sales = %s", stats.TotalSales)
	}
}
