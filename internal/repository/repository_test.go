package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

type fixture struct {
	db       *db.DB
	owners   *OwnerRepo
	clients  *ClientRepo
	invoices *InvoiceRepo
	owner    *domain.Owner
	client   *domain.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "invoicer.db"), "test-key")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())

	f := &fixture{
		db:       database,
		owners:   NewOwnerRepo(database),
		clients:  NewClientRepo(database),
		invoices: NewInvoiceRepo(database),
	}

	ctx := context.Background()
	f.owner = domain.NewOwner("owner@example.com", "Acme Traders")
	require.NoError(t, f.owners.Create(ctx, f.owner))
	f.client = domain.NewClient(f.owner.ID, "Globex")
	require.NoError(t, f.clients.Create(ctx, f.client))
	return f
}

func (f *fixture) newInvoice(t *testing.T, ref string, quotation bool) *domain.Invoice {
	t.Helper()
	inv := domain.NewInvoice(f.owner.ID, f.client.ID, quotation)
	inv.ReferenceNumber = ref
	require.NoError(t, f.invoices.Create(context.Background(), inv))
	return inv
}

func TestOwnerRepo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	got, err := f.owners.GetByEmail(ctx, "OWNER@example.com")
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, got.ID)
	assert.False(t, got.IsOnboarded)

	dup := domain.NewOwner("owner@example.com", "Other")
	assert.Error(t, f.owners.Create(ctx, dup))

	got.Phone = "0300-1234567"
	got.IsOnboarded = true
	require.NoError(t, f.owners.Update(ctx, got))

	got, err = f.owners.GetByID(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "0300-1234567", got.Phone)
	assert.True(t, got.IsOnboarded)

	_, err = f.owners.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientRepo_OwnerScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other := domain.NewOwner("other@example.com", "Other Co")
	require.NoError(t, f.owners.Create(ctx, other))
	require.NoError(t, f.clients.Create(ctx, domain.NewClient(other.ID, "Initech")))
	// Same name is fine under a different owner
	require.NoError(t, f.clients.Create(ctx, domain.NewClient(other.ID, "Globex")))

	mine, err := f.clients.List(ctx, &f.owner.ID, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Globex", mine[0].Name)

	all, err := f.clients.List(ctx, nil, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, f.clients.Archive(ctx, f.client.ID))
	mine, err = f.clients.List(ctx, &f.owner.ID, false)
	require.NoError(t, err)
	assert.Empty(t, mine)

	mine, err = f.clients.List(ctx, &f.owner.ID, true)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestInvoiceRepo_DecimalRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv := domain.NewInvoice(f.owner.ID, f.client.ID, false)
	inv.ReferenceNumber = "I_SAE-0001"
	inv.TaxPercentage = decimal.NewNullDecimal(decimal.RequireFromString("17.5"))
	inv.TransitCharges = decimal.RequireFromString("12.30")
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.Local)
	inv.Date = &date
	require.NoError(t, f.invoices.Create(ctx, inv))

	item := domain.NewInvoiceItem("Steel rod", "kg", decimal.RequireFromString("12.125"), decimal.RequireFromString("3.10"))
	require.NoError(t, f.invoices.AddItem(ctx, inv.ID, item))

	items, err := f.invoices.GetItems(ctx, inv.ID)
	require.NoError(t, err)
	inv.Recompute(items)
	require.NoError(t, f.invoices.Update(ctx, inv))

	got, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.Client.Name)
	assert.Equal(t, "17.5", got.TaxPercentage.Decimal.String())
	assert.True(t, got.TotalPrice.Equal(inv.TotalPrice))
	assert.True(t, got.Tax.Equal(inv.Tax))
	assert.True(t, got.GrandTotal.Equal(inv.GrandTotal))
	assert.Equal(t, "37.59", domain.FormatMoney(items[0].TotalPrice)) // 12.125 * 3.10 = 37.5875
	require.NotNil(t, got.Date)
	assert.Equal(t, "2026-05-04", got.Date.Format("2006-01-02"))
	assert.Equal(t, int64(2), got.Version)
}

func TestInvoiceRepo_ReferenceUniquePerSeries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.newInvoice(t, "I_SAE-0001", false)
	// Same text in the other series does not collide
	f.newInvoice(t, "I_SAE-0001", true)

	dup := domain.NewInvoice(f.owner.ID, f.client.ID, false)
	dup.ReferenceNumber = "I_SAE-0001"
	err := f.invoices.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrReferenceConflict)
}

func TestInvoiceRepo_LastReference(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	last, err := f.invoices.LastReference(ctx, domain.SeriesInvoice)
	require.NoError(t, err)
	assert.Empty(t, last)

	f.newInvoice(t, "Q_SAE-0001", true)
	flipped := f.newInvoice(t, "I_SAE-0001", false)
	f.newInvoice(t, "Q_SAE-0002", true)

	// An older row moving into the quotation series takes the next number
	flipped.IsQuotation = true
	flipped.ReferenceNumber = "Q_SAE-0003"
	require.NoError(t, f.invoices.Update(ctx, flipped))

	last, err = f.invoices.LastReference(ctx, domain.SeriesQuotation)
	require.NoError(t, err)
	assert.Equal(t, "Q_SAE-0003", last)

	// Nothing recorded I_SAE-0001 as issued, so only live rows count
	last, err = f.invoices.LastReference(ctx, domain.SeriesInvoice)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestInvoiceRepo_RecordReferenceKeepsHighWaterMark(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var top *domain.Invoice
	for _, ref := range []string{"I_SAE-0001", "I_SAE-0002", "I_SAE-0003"} {
		require.NoError(t, f.invoices.RecordReference(ctx, domain.SeriesInvoice, ref))
		top = f.newInvoice(t, ref, false)
	}

	// The top invoice leaves the series; its number stays spent
	top.IsQuotation = true
	top.ReferenceNumber = "Q_SAE-0001"
	require.NoError(t, f.invoices.RecordReference(ctx, domain.SeriesQuotation, top.ReferenceNumber))
	require.NoError(t, f.invoices.Update(ctx, top))

	last, err := f.invoices.LastReference(ctx, domain.SeriesInvoice)
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0003", last)

	next, err := domain.NextReferenceNumber("I_SAE", last)
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0004", next)

	// A lower reference never moves the mark back
	require.NoError(t, f.invoices.RecordReference(ctx, domain.SeriesInvoice, "I_SAE-0002"))
	last, err = f.invoices.LastReference(ctx, domain.SeriesInvoice)
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0003", last)

	err = f.invoices.RecordReference(ctx, domain.SeriesInvoice, "no-number")
	assert.True(t, domain.IsValidationKind(err, domain.MalformedReference))

	// A rolled back transaction leaves the mark alone
	err = f.db.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, f.invoices.RecordReference(ctx, domain.SeriesInvoice, "I_SAE-0009"))
		return domain.ErrReferenceConflict
	})
	require.ErrorIs(t, err, domain.ErrReferenceConflict)
	last, err = f.invoices.LastReference(ctx, domain.SeriesInvoice)
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0003", last)
}

func TestInvoiceRepo_StaleVersion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	inv := f.newInvoice(t, "I_SAE-0001", false)

	a, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	b, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)

	a.Notes = "first"
	require.NoError(t, f.invoices.Update(ctx, a))

	b.Notes = "second"
	err = f.invoices.Update(ctx, b)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	got, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Notes)

	b.ID = 999
	assert.ErrorIs(t, f.invoices.Update(ctx, b), domain.ErrNotFound)
}

func TestInvoiceRepo_DeleteCascadesItems(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	inv := f.newInvoice(t, "I_SAE-0001", false)

	for n := 0; n < 3; n++ {
		item := domain.NewInvoiceItem("Bolt", "pcs", decimal.NewFromInt(1), decimal.NewFromInt(2))
		require.NoError(t, f.invoices.AddItem(ctx, inv.ID, item))
	}

	require.NoError(t, f.invoices.Delete(ctx, inv.ID))

	var count int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM invoice_items").Scan(&count))
	assert.Zero(t, count)

	assert.ErrorIs(t, f.invoices.Delete(ctx, inv.ID), domain.ErrNotFound)
}

func TestInvoiceRepo_ItemScopedToInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.newInvoice(t, "I_SAE-0001", false)
	b := f.newInvoice(t, "I_SAE-0002", false)

	item := domain.NewInvoiceItem("Nut", "pcs", decimal.NewFromInt(4), decimal.RequireFromString("0.25"))
	require.NoError(t, f.invoices.AddItem(ctx, a.ID, item))

	_, err := f.invoices.GetItem(ctx, b.ID, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.invoices.DeleteItem(ctx, b.ID, item.ID), domain.ErrNotFound)

	got, err := f.invoices.GetItem(ctx, a.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.00", domain.FormatMoney(got.TotalPrice))
}

func TestInvoiceRepo_ListFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv := f.newInvoice(t, "I_SAE-0001", false)
	inv.Notes = "cement delivery"
	inv.IsPaid = true
	require.NoError(t, f.invoices.Update(ctx, inv))
	f.newInvoice(t, "I_SAE-0002", false)
	f.newInvoice(t, "Q_SAE-0001", true)

	quotes := domain.SeriesQuotation
	got, err := f.invoices.List(ctx, InvoiceFilter{Series: &quotes})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Q_SAE-0001", got[0].ReferenceNumber)

	paid := true
	got, err = f.invoices.List(ctx, InvoiceFilter{Paid: &paid})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.invoices.List(ctx, InvoiceFilter{Search: "CEMENT"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inv.ID, got[0].ID)

	got, err = f.invoices.List(ctx, InvoiceFilter{Search: "globex"})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = f.invoices.List(ctx, InvoiceFilter{Search: time.Now().Format("2006-01-02")})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = f.invoices.List(ctx, InvoiceFilter{Search: "100%"})
	require.NoError(t, err)
	assert.Empty(t, got)

	nobody := int64(999)
	got, err = f.invoices.List(ctx, InvoiceFilter{OwnerID: &nobody})
	require.NoError(t, err)
	assert.Empty(t, got)
}
