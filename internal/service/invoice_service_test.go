package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/repository"
)

var (
	alice = domain.Actor{OwnerID: 1, Email: "alice@example.com"}
	bob   = domain.Actor{OwnerID: 2, Email: "bob@example.com"}
	staff = domain.Actor{OwnerID: 3, Email: "staff@example.com", Staff: true}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pdec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type invoiceFixture struct {
	svc      *invoiceService
	invoices *memInvoiceRepo
	tx       *passthroughTx
}

func newInvoiceFixture() *invoiceFixture {
	invoices := newMemInvoiceRepo()
	clients := newMemClientRepo(
		&domain.Client{ID: 10, OwnerID: alice.OwnerID, Name: "Globex"},
		&domain.Client{ID: 11, OwnerID: alice.OwnerID, Name: "Initech"},
		&domain.Client{ID: 20, OwnerID: bob.OwnerID, Name: "Umbrella"},
	)
	tx := &passthroughTx{}

	svc := &invoiceService{
		tx:          tx,
		invoiceRepo: invoices,
		clientRepo:  clients,
		opts: InvoiceOptions{
			Prefixes:            domain.DefaultPrefixes,
			MaxReferenceRetries: 3,
		},
		log: logger.Nop(),
	}
	return &invoiceFixture{svc: svc, invoices: invoices, tx: tx}
}

func sampleItems() []*domain.InvoiceItem {
	return []*domain.InvoiceItem{
		domain.NewInvoiceItem("Cement", "bag", dec("2"), dec("10.00")),
		domain.NewInvoiceItem("Sand", "cft", dec("1"), dec("5.00")),
	}
}

func TestCreateInvoice_ComputesTotalsAndFirstReference(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{
		ClientID:      10,
		TaxPercentage: pdec("10"),
		Items:         sampleItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, "I_SAE-0001", inv.ReferenceNumber)
	assert.Equal(t, "25.00", domain.FormatMoney(inv.TotalPrice))
	assert.Equal(t, "2.50", domain.FormatMoney(inv.Tax))
	assert.Equal(t, "27.50", domain.FormatMoney(inv.GrandTotal))
	assert.Equal(t, "Globex", inv.Client.Name)

	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.GrandTotal.Equal(dec("27.50")))
	assert.Len(t, f.invoices.items[inv.ID], 2)
}

func TestCreateInvoice_SequentialPerSeries(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	for n := 1; n <= 5; n++ {
		inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("I_SAE-%04d", n), inv.ReferenceNumber)
	}

	q, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, IsQuotation: true})
	require.NoError(t, err)
	assert.Equal(t, "Q_SAE-0001", q.ReferenceNumber)

	// Numbering is global per series, not per owner
	b, err := f.svc.CreateInvoice(ctx, bob, CreateInvoiceInput{ClientID: 20})
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0006", b.ReferenceNumber)
}

func TestCreateInvoice_RetriesOnReferenceConflict(t *testing.T) {
	f := newInvoiceFixture()
	f.invoices.conflicts = 1

	inv, err := f.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{ClientID: 10})
	require.NoError(t, err)

	assert.Equal(t, "I_SAE-0002", inv.ReferenceNumber, "the racing writer took 0001")
	assert.Equal(t, 2, f.invoices.creates)
	assert.Equal(t, 2, f.tx.calls, "each attempt runs in its own transaction")
}

func TestCreateInvoice_GivesUpAfterMaxRetries(t *testing.T) {
	f := newInvoiceFixture()
	f.invoices.conflicts = 100

	_, err := f.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{ClientID: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReferenceConflict)
	assert.Equal(t, 3, f.invoices.creates)

	mine, err := f.svc.ListInvoices(context.Background(), alice, repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCreateInvoice_InvalidTaxPersistsNothing(t *testing.T) {
	f := newInvoiceFixture()

	_, err := f.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{
		ClientID:      10,
		TaxPercentage: pdec("150"),
		Items:         sampleItems(),
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidationKind(err, domain.InvalidTaxPercentage))
	assert.Empty(t, f.invoices.invoices)
	assert.Zero(t, f.tx.calls)
}

func TestCreateInvoice_InvalidItemPersistsNothing(t *testing.T) {
	f := newInvoiceFixture()
	bad := domain.NewInvoiceItem("Cement", "bag", dec("-1"), dec("10"))

	_, err := f.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{
		ClientID: 10,
		Items:    []*domain.InvoiceItem{bad},
	})
	assert.True(t, domain.IsValidationKind(err, domain.InvalidQuantity))
	assert.Empty(t, f.invoices.invoices)
}

func TestCreateInvoice_DefaultTaxPercentage(t *testing.T) {
	f := newInvoiceFixture()
	f.svc.opts.DefaultTaxPercentage = decimal.NewNullDecimal(dec("17"))
	ctx := context.Background()

	taxed, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, Items: sampleItems()})
	require.NoError(t, err)
	assert.Equal(t, "17", taxed.TaxPercentage.Decimal.String())
	assert.Equal(t, "4.25", domain.FormatMoney(taxed.Tax))

	included, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, IsTaxed: true, Items: sampleItems()})
	require.NoError(t, err)
	assert.False(t, included.TaxPercentage.Valid)
	assert.True(t, included.Tax.IsZero())
	assert.Equal(t, "25.00", domain.FormatMoney(included.GrandTotal))

	zero, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, TaxPercentage: pdec("0"), Items: sampleItems()})
	require.NoError(t, err)
	assert.True(t, zero.Tax.IsZero())
}

func TestCreateInvoice_TaxIncludedRejectsPercentage(t *testing.T) {
	f := newInvoiceFixture()

	_, err := f.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{
		ClientID:      10,
		IsTaxed:       true,
		TaxPercentage: pdec("17"),
		Items:         sampleItems(),
	})
	assert.True(t, domain.IsValidationKind(err, domain.InvalidTaxPercentage))
	assert.Empty(t, f.invoices.invoices)
}

func TestCreateInvoice_ForeignClientIsNotFound(t *testing.T) {
	f := newInvoiceFixture()

	_, err := f.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{ClientID: 20})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateInvoice(context.Background(), domain.Actor{}, CreateInvoiceInput{ClientID: 10})
	assert.ErrorIs(t, err, ErrNoActor)
}

func TestOwnerScoping(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, Items: sampleItems()})
	require.NoError(t, err)

	_, err = f.svc.GetInvoice(ctx, bob, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.AddItem(ctx, bob, inv.ID, domain.NewInvoiceItem("X", "pcs", dec("1"), dec("1")))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.MarkPaid(ctx, bob, inv.ID, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteInvoice(ctx, bob, inv.ID), domain.ErrNotFound)

	// Out-of-scope and missing rows are indistinguishable
	_, missing := f.svc.GetInvoice(ctx, bob, 999)
	assert.ErrorIs(t, missing, domain.ErrNotFound)

	got, err := f.svc.GetInvoice(ctx, staff, inv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	list, err := f.svc.ListInvoices(ctx, bob, repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.ListInvoices(ctx, staff, repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestItemMutationsRecompute(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{
		ClientID:      10,
		TaxPercentage: pdec("10"),
		Items:         sampleItems(),
	})
	require.NoError(t, err)

	inv, err = f.svc.AddItem(ctx, alice, inv.ID, domain.NewInvoiceItem("Gravel", "ton", dec("0.5"), dec("30")))
	require.NoError(t, err)
	assert.Equal(t, "40.00", domain.FormatMoney(inv.TotalPrice))
	assert.Equal(t, "44.00", domain.FormatMoney(inv.GrandTotal))

	items, err := f.svc.ListItems(ctx, alice, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	qty := dec("4")
	inv, err = f.svc.UpdateItem(ctx, alice, inv.ID, items[0].ID, domain.ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "60.00", domain.FormatMoney(inv.TotalPrice))

	neg := dec("-1")
	_, err = f.svc.UpdateItem(ctx, alice, inv.ID, items[0].ID, domain.ItemPatch{UnitPrice: &neg})
	assert.True(t, domain.IsValidationKind(err, domain.InvalidUnitPrice))

	_, err = f.svc.UpdateItem(ctx, alice, inv.ID, 999, domain.ItemPatch{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveLastItemZeroesTotals(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{
		ClientID:      10,
		TaxPercentage: pdec("10"),
		Items:         sampleItems()[:1],
	})
	require.NoError(t, err)
	require.Equal(t, "22.00", domain.FormatMoney(inv.GrandTotal))

	items, err := f.svc.ListItems(ctx, alice, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	inv, err = f.svc.RemoveItem(ctx, alice, inv.ID, items[0].ID)
	require.NoError(t, err)
	assert.True(t, inv.TotalPrice.IsZero())
	assert.True(t, inv.Tax.IsZero())
	assert.True(t, inv.GrandTotal.IsZero())

	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.GrandTotal.IsZero())
}

func TestUpdateInvoice_SeriesFlipDrawsFromTargetSeries(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	for n := 0; n < 4; n++ {
		_, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, IsQuotation: true})
		require.NoError(t, err)
	}
	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10})
	require.NoError(t, err)
	require.Equal(t, "I_SAE-0001", inv.ReferenceNumber)

	yes := true
	inv, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{IsQuotation: &yes})
	require.NoError(t, err)
	assert.Equal(t, "Q_SAE-0005", inv.ReferenceNumber)
	assert.True(t, inv.IsQuotation)

	// Setting the flag to its current value keeps the number
	inv, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{IsQuotation: &yes})
	require.NoError(t, err)
	assert.Equal(t, "Q_SAE-0005", inv.ReferenceNumber)

	// I_SAE-0001 was issued once already; coming back draws a fresh number
	no := false
	inv, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{IsQuotation: &no})
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0002", inv.ReferenceNumber)
}

func TestCreateInvoice_NumberVacatedBySeriesFlipIsNotReissued(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	var top *domain.Invoice
	for n := 0; n < 3; n++ {
		var err error
		top, err = f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10})
		require.NoError(t, err)
	}
	require.Equal(t, "I_SAE-0003", top.ReferenceNumber)

	yes := true
	flipped, err := f.svc.UpdateInvoice(ctx, alice, top.ID, 0, domain.InvoicePatch{IsQuotation: &yes})
	require.NoError(t, err)
	assert.Equal(t, "Q_SAE-0001", flipped.ReferenceNumber)

	next, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10})
	require.NoError(t, err)
	assert.Equal(t, "I_SAE-0004", next.ReferenceNumber)
}

func TestUpdateInvoice_RetriesOnReferenceConflict(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10})
	require.NoError(t, err)
	txBefore, updatesBefore := f.tx.calls, f.invoices.updates

	f.invoices.updateConflicts = 1
	yes := true
	inv, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{IsQuotation: &yes})
	require.NoError(t, err)

	assert.Equal(t, "Q_SAE-0002", inv.ReferenceNumber, "the racing writer took Q_SAE-0001")
	assert.True(t, inv.IsQuotation)
	assert.Equal(t, 2, f.tx.calls-txBefore, "each attempt runs in its own transaction")
	assert.Equal(t, 2, f.invoices.updates-updatesBefore)

	f.invoices.updateConflicts = 100
	no := false
	_, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{IsQuotation: &no})
	assert.ErrorIs(t, err, domain.ErrReferenceConflict)

	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q_SAE-0002", stored.ReferenceNumber)
}

func TestUpdateInvoice_InvalidPatchPersistsNothing(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, Items: sampleItems()})
	require.NoError(t, err)
	before, _ := f.invoices.GetByID(ctx, inv.ID)

	notes := "changed"
	_, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{TaxPercentage: pdec("150"), Notes: &notes})
	assert.True(t, domain.IsValidationKind(err, domain.InvalidTaxPercentage))

	after, _ := f.invoices.GetByID(ctx, inv.ID)
	assert.Equal(t, before, after)
}

func TestUpdateInvoice_StaleVersion(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10})
	require.NoError(t, err)
	loaded := inv.Version

	notes := "first edit"
	_, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, loaded, domain.InvoicePatch{Notes: &notes})
	require.NoError(t, err)

	notes = "second edit from a stale screen"
	_, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, loaded, domain.InvoicePatch{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
}

func TestUpdateInvoice_TaxAndTransitRecompute(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, Items: sampleItems()})
	require.NoError(t, err)
	assert.Equal(t, "25.00", domain.FormatMoney(inv.GrandTotal))

	inv, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{
		TaxPercentage:  pdec("10"),
		TransitCharges: pdec("5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "30.00", domain.FormatMoney(inv.TotalPrice))
	assert.Equal(t, "3.00", domain.FormatMoney(inv.Tax))
	assert.Equal(t, "33.00", domain.FormatMoney(inv.GrandTotal))

	other := int64(20)
	_, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{ClientID: &other})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Marking tax as included drops the percentage and the tax line
	included := true
	inv, err = f.svc.UpdateInvoice(ctx, alice, inv.ID, 0, domain.InvoicePatch{IsTaxed: &included})
	require.NoError(t, err)
	assert.False(t, inv.TaxPercentage.Valid)
	assert.Equal(t, "30.00", domain.FormatMoney(inv.GrandTotal))

	inv, err = f.svc.MarkPaid(ctx, alice, inv.ID, true)
	require.NoError(t, err)
	assert.True(t, inv.IsPaid)
}

func TestDeleteInvoice_CascadesItems(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{ClientID: 10, Items: sampleItems()})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteInvoice(ctx, alice, inv.ID))
	assert.Empty(t, f.invoices.items[inv.ID])

	_, err = f.svc.GetInvoice(ctx, alice, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecalculate_Idempotent(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	inv, err := f.svc.CreateInvoice(ctx, alice, CreateInvoiceInput{
		ClientID:       10,
		TaxPercentage:  pdec("17.5"),
		TransitCharges: dec("3.33"),
		Items:          sampleItems(),
	})
	require.NoError(t, err)

	again, err := f.svc.Recalculate(ctx, alice, inv.ID)
	require.NoError(t, err)
	assert.True(t, again.GrandTotal.Equal(inv.GrandTotal))
	assert.Equal(t, inv.Version+1, again.Version)
}
