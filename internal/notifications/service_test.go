package notifications

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
)

type memRepo struct {
	rows   map[int64]*models.Notification
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]*models.Notification{}, nextID: 1}
}

func (m *memRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memRepo) Create(ctx context.Context, n *models.Notification) error {
	n.ID = m.nextID
	n.CreatedAt = time.Now()
	m.nextID++
	m.rows[n.ID] = n
	return nil
}

func (m *memRepo) Save(ctx context.Context, n *models.Notification) error {
	m.rows[n.ID] = n
	return nil
}

func (m *memRepo) UpdateFields(ctx context.Context, id int64, updates map[string]any) error {
	row, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if read, ok := updates["is_read"]; ok {
		row.Read = read.(bool)
	}
	if sent, ok := updates["last_email_sent_at"]; ok {
		at := sent.(time.Time)
		row.LastEmailSentAt = &at
	}
	return nil
}

func (m *memRepo) FindByKey(ctx context.Context, userID uuid.UUID, referenceID int64, typ enums.NotificationType) (*models.Notification, error) {
	for _, row := range m.rows {
		if row.UserID == userID && row.ReferenceID != nil && *row.ReferenceID == referenceID && row.Type == typ {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) FindByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*models.Notification, error) {
	row, ok := m.rows[id]
	if !ok || row.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (m *memRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int, cursor *pagination.Cursor) ([]models.Notification, error) {
	var rows []models.Notification
	for _, row := range m.rows {
		if row.UserID != userID {
			continue
		}
		if unreadOnly && row.Read {
			continue
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (m *memRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range m.rows {
		if row.UserID == userID && !row.Read {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	for _, row := range m.rows {
		if row.UserID == userID {
			row.Read = true
		}
	}
	return nil
}

func (m *memRepo) DeleteForSale(ctx context.Context, saleID int64, types []enums.NotificationType) error {
	for id, row := range m.rows {
		if row.ReferenceID == nil || *row.ReferenceID != saleID {
			continue
		}
		for _, typ := range types {
			if row.Type == typ {
				delete(m.rows, id)
				break
			}
		}
	}
	return nil
}

func (m *memRepo) ListByTypes(ctx context.Context, types []enums.NotificationType) ([]models.Notification, error) {
	var rows []models.Notification
	for _, row := range m.rows {
		for _, typ := range types {
			if row.Type == typ {
				rows = append(rows, *row)
				break
			}
		}
	}
	return rows, nil
}

func (m *memRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		delete(m.rows, id)
	}
	return nil
}

func (m *memRepo) byType(typ enums.NotificationType) []*models.Notification {
	var rows []*models.Notification
	for _, row := range m.rows {
		if row.Type == typ {
			rows = append(rows, row)
		}
	}
	return rows
}

type fakeSaleSource struct {
	pending  []models.Sale
	statuses map[int64]enums.SaleStatus
}

func (f *fakeSaleSource) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Sale, error) {
	var rows []models.Sale
	for _, sale := range f.pending {
		if !sale.OrderDate.After(cutoff) {
			rows = append(rows, sale)
		}
	}
	return rows, nil
}

func (f *fakeSaleSource) StatusesByIDs(ctx context.Context, ids []int64) (map[int64]enums.SaleStatus, error) {
	out := map[int64]enums.SaleStatus{}
	for _, id := range ids {
		if status, ok := f.statuses[id]; ok {
			out[id] = status
		}
	}
	return out, nil
}

type fakeAdminDirectory struct {
	admins []models.User
}

func (f *fakeAdminDirectory) FindAdmins(ctx context.Context) ([]models.User, error) {
	return f.admins, nil
}

type sentMail struct {
	to         string
	orderLabel string
	admin      bool
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendSellerReminder(ctx context.Context, to, name, orderLabel string, daysPending int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, orderLabel: orderLabel})
	return nil
}

func (f *fakeMailer) SendAdminAlert(ctx context.Context, to, name, orderLabel, sellerName string, daysPending int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, orderLabel: orderLabel, admin: true})
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func reminderConfig() config.ReminderConfig {
	return config.ReminderConfig{
		MinAge:         24 * time.Hour,
		EmailAfterDays: 10,
		AdminAfterDays: 30,
		EmailEveryDays: 10,
	}
}

type reminderFixture struct {
	svc    Service
	repo   *memRepo
	sales  *fakeSaleSource
	users  *fakeAdminDirectory
	mailer *fakeMailer
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	f := &reminderFixture{
		repo:   newMemRepo(),
		sales:  &fakeSaleSource{statuses: map[int64]enums.SaleStatus{}},
		users:  &fakeAdminDirectory{},
		mailer: &fakeMailer{},
	}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(f.repo, f.sales, f.users, f.mailer, fakeTx{}, reminderConfig(), log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func pendingSale(id int64, sellerID uuid.UUID, age time.Duration, now time.Time) models.Sale {
	return models.Sale{
		ID:           id,
		SellerID:     sellerID,
		CustomerName: "Cliente",
		Status:       enums.SaleStatusPending,
		OrderDate:    now.Add(-age),
		Seller: &models.User{
			ID:       sellerID,
			Email:    "seller@example.com",
			FullName: "Ana Vendedora",
		},
	}
}

func (f *reminderFixture) addPending(sale models.Sale) {
	f.sales.pending = append(f.sales.pending, sale)
	f.sales.statuses[sale.ID] = sale.Status
}

func TestTickCreatesReminderWithoutEmailForYoungSale(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.addPending(pendingSale(1, uuid.New(), 25*time.Hour, now))

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateReminders: %v", err)
	}

	if summary.Created != 1 || summary.EmailsSent != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	reminders := f.repo.byType(enums.NotificationTypeSalePendingReminder)
	if len(reminders) != 1 || reminders[0].Read {
		t.Fatalf("reminders = %+v", reminders)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("emails sent: %v", f.mailer.sent)
	}
}

func TestTickSkipsSalesYoungerThanMinAge(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.addPending(pendingSale(1, uuid.New(), 23*time.Hour, now))

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateReminders: %v", err)
	}
	if summary.SalesProcessed != 0 || len(f.repo.rows) != 0 {
		t.Fatalf("young sale processed: %+v", summary)
	}
}

func TestTickIsIdempotent(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.addPending(pendingSale(1, uuid.New(), 12*24*time.Hour, now))

	first, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if first.Created != 1 || first.EmailsSent != 1 {
		t.Fatalf("first summary = %+v", first)
	}

	second, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if second.Created != 0 || second.Reactivated != 0 || second.EmailsSent != 0 {
		t.Fatalf("second tick not idempotent: %+v", second)
	}
	if len(f.repo.rows) != 1 {
		t.Fatalf("duplicate rows: %d", len(f.repo.rows))
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("duplicate emails: %d", len(f.mailer.sent))
	}
}

func TestTickReactivatesReadReminder(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.addPending(pendingSale(1, uuid.New(), 48*time.Hour, now))

	if _, err := f.svc.GenerateReminders(context.Background(), now); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	for _, row := range f.repo.rows {
		row.Read = true
	}

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if summary.Reactivated != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, row := range f.repo.rows {
		if row.Read {
			t.Fatal("reminder not reactivated")
		}
	}
}

func TestEmailThrottleTiming(t *testing.T) {
	base := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	sellerID := uuid.New()
	f := newReminderFixture(t)
	orderDate := base.Add(-10 * 24 * time.Hour)
	sale := pendingSale(1, sellerID, 0, base)
	sale.OrderDate = orderDate
	f.addPending(sale)

	// Day 10: first email goes out and the timestamp is stamped.
	summary, err := f.svc.GenerateReminders(context.Background(), base)
	if err != nil {
		t.Fatalf("day 10 tick: %v", err)
	}
	if summary.EmailsSent != 1 {
		t.Fatalf("day 10 summary = %+v", summary)
	}
	reminder := f.repo.byType(enums.NotificationTypeSalePendingReminder)[0]
	if reminder.LastEmailSentAt == nil || !reminder.LastEmailSentAt.Equal(base) {
		t.Fatalf("lastEmailSentAt = %v", reminder.LastEmailSentAt)
	}

	// Day 15: inside the throttle window, nothing is sent.
	day15 := base.Add(5 * 24 * time.Hour)
	summary, err = f.svc.GenerateReminders(context.Background(), day15)
	if err != nil {
		t.Fatalf("day 15 tick: %v", err)
	}
	if summary.EmailsSent != 0 || len(f.mailer.sent) != 1 {
		t.Fatalf("day 15 sent emails: summary=%+v total=%d", summary, len(f.mailer.sent))
	}

	// Day 20: ten days after the first email, a new one goes out.
	day20 := base.Add(10 * 24 * time.Hour)
	summary, err = f.svc.GenerateReminders(context.Background(), day20)
	if err != nil {
		t.Fatalf("day 20 tick: %v", err)
	}
	if summary.EmailsSent != 1 || len(f.mailer.sent) != 2 {
		t.Fatalf("day 20 sent emails: summary=%+v total=%d", summary, len(f.mailer.sent))
	}
}

func TestAdminEscalationAtThirtyDays(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.users.admins = []models.User{
		{ID: uuid.New(), Email: "admin1@example.com", FullName: "Admin Uno"},
		{ID: uuid.New(), Email: "admin2@example.com", FullName: "Admin Dos"},
	}
	f.addPending(pendingSale(1, uuid.New(), 31*24*time.Hour, now))

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateReminders: %v", err)
	}

	alerts := f.repo.byType(enums.NotificationTypeSalePendingAdminAlert)
	if len(alerts) != 2 {
		t.Fatalf("admin alerts = %d, want 2", len(alerts))
	}
	// 1 seller email + 2 admin emails.
	if summary.EmailsSent != 3 {
		t.Fatalf("emails sent = %d, want 3", summary.EmailsSent)
	}
	adminMails := 0
	for _, mail := range f.mailer.sent {
		if mail.admin {
			adminMails++
		}
	}
	if adminMails != 2 {
		t.Fatalf("admin emails = %d", adminMails)
	}
}

func TestNoAdminEscalationBeforeThirtyDays(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.users.admins = []models.User{{ID: uuid.New(), Email: "admin@example.com"}}
	f.addPending(pendingSale(1, uuid.New(), 29*24*time.Hour, now))

	if _, err := f.svc.GenerateReminders(context.Background(), now); err != nil {
		t.Fatalf("GenerateReminders: %v", err)
	}
	if alerts := f.repo.byType(enums.NotificationTypeSalePendingAdminAlert); len(alerts) != 0 {
		t.Fatalf("premature admin alerts: %d", len(alerts))
	}
}

func TestOrphanCleanup(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.addPending(pendingSale(1, uuid.New(), 48*time.Hour, now))

	if _, err := f.svc.GenerateReminders(context.Background(), now); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if len(f.repo.rows) != 1 {
		t.Fatalf("rows = %d", len(f.repo.rows))
	}

	// The sale is approved before the next tick; its reminder is orphaned.
	f.sales.pending = nil
	f.sales.statuses[1] = enums.SaleStatusApproved

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if summary.OrphansDeleted != 1 {
		t.Fatalf("orphans = %d", summary.OrphansDeleted)
	}
	if len(f.repo.rows) != 0 {
		t.Fatalf("orphan row survived: %d", len(f.repo.rows))
	}
}

func TestOrphanCleanupRemovesRowsForMissingSales(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	refID := int64(42)
	_ = f.repo.Create(context.Background(), &models.Notification{
		UserID:      uuid.New(),
		Type:        enums.NotificationTypeSalePendingReminder,
		ReferenceID: &refID,
	})

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("GenerateReminders: %v", err)
	}
	if summary.OrphansDeleted != 1 || len(f.repo.rows) != 0 {
		t.Fatalf("missing-sale orphan kept: %+v", summary)
	}
}

func TestEmailFailureIsSoftAndRetriedNextTick(t *testing.T) {
	now := time.Now()
	f := newReminderFixture(t)
	f.addPending(pendingSale(1, uuid.New(), 12*24*time.Hour, now))
	f.mailer.err = errors.New("smtp down")

	summary, err := f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("tick must not fail on email errors: %v", err)
	}
	if summary.EmailFailures != 1 || summary.EmailsSent != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	reminder := f.repo.byType(enums.NotificationTypeSalePendingReminder)[0]
	if reminder.LastEmailSentAt != nil {
		t.Fatal("timestamp stamped despite send failure")
	}

	// Once the mailer recovers the next tick retries immediately.
	f.mailer.err = nil
	summary, err = f.svc.GenerateReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("recovery tick: %v", err)
	}
	if summary.EmailsSent != 1 {
		t.Fatalf("recovery summary = %+v", summary)
	}
}

func TestClearForSaleRemovesAllSaleNotifications(t *testing.T) {
	f := newReminderFixture(t)
	saleID := int64(7)
	otherID := int64(8)
	for _, typ := range []enums.NotificationType{
		enums.NotificationTypeSalePendingReminder,
		enums.NotificationTypeSalePendingAdminAlert,
		enums.NotificationTypeSaleUnderReview,
	} {
		_ = f.repo.Create(context.Background(), &models.Notification{
			UserID: uuid.New(), Type: typ, ReferenceID: &saleID,
		})
	}
	_ = f.repo.Create(context.Background(), &models.Notification{
		UserID: uuid.New(), Type: enums.NotificationTypeSalePendingReminder, ReferenceID: &otherID,
	})

	if err := f.svc.ClearForSale(context.Background(), nil, saleID); err != nil {
		t.Fatalf("ClearForSale: %v", err)
	}
	if len(f.repo.rows) != 1 {
		t.Fatalf("rows after clear = %d, want 1", len(f.repo.rows))
	}
	// Clearing again is a no-op.
	if err := f.svc.ClearForSale(context.Background(), nil, saleID); err != nil {
		t.Fatalf("second ClearForSale: %v", err)
	}
}

func TestNotifyAdminsSaleUnderReview(t *testing.T) {
	f := newReminderFixture(t)
	f.users.admins = []models.User{
		{ID: uuid.New(), FullName: "Admin Uno"},
		{ID: uuid.New(), FullName: "Admin Dos"},
	}
	sale := &models.Sale{ID: 9, CustomerName: "Cliente", OrderDate: time.Now()}

	if err := f.svc.NotifyAdminsSaleUnderReview(context.Background(), sale); err != nil {
		t.Fatalf("NotifyAdminsSaleUnderReview: %v", err)
	}
	alerts := f.repo.byType(enums.NotificationTypeSaleUnderReview)
	if len(alerts) != 2 {
		t.Fatalf("review alerts = %d", len(alerts))
	}

	// Calling again creates no duplicates.
	if err := f.svc.NotifyAdminsSaleUnderReview(context.Background(), sale); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(f.repo.byType(enums.NotificationTypeSaleUnderReview)) != 2 {
		t.Fatal("duplicate review alerts created")
	}
}

func TestMarkReadScopesToOwner(t *testing.T) {
	f := newReminderFixture(t)
	owner := uuid.New()
	ref := int64(1)
	n := &models.Notification{UserID: owner, Type: enums.NotificationTypeSalePendingReminder, ReferenceID: &ref}
	_ = f.repo.Create(context.Background(), n)

	if err := f.svc.MarkRead(context.Background(), n.ID, uuid.New()); err == nil {
		t.Fatal("foreign user could mark notification read")
	}
	if err := f.svc.MarkRead(context.Background(), n.ID, owner); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !f.repo.rows[n.ID].Read {
		t.Fatal("notification still unread")
	}
}
