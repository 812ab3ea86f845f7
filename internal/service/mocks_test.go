package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
)

// passthroughTx runs fn directly; the in-memory repos need no transaction
type passthroughTx struct{ calls int }

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

// memInvoiceRepo stores copies so services only see what they persisted.
// conflicts simulates a concurrent writer: each pending conflict makes the next
// Create lose the race for its reference number. updateConflicts does the same
// for Update.
type memInvoiceRepo struct {
	invoices        map[int64]*domain.Invoice
	items           map[int64][]*domain.InvoiceItem
	marks           map[domain.Series]string
	nextID          int64
	nextItemID      int64
	conflicts       int
	updateConflicts int
	creates         int
	updates         int
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		invoices: make(map[int64]*domain.Invoice),
		items:    make(map[int64][]*domain.InvoiceItem),
		marks:    make(map[domain.Series]string),
	}
}

// racer inserts a row holding ref the way a concurrent writer would
func (m *memInvoiceRepo) racer(invoice *domain.Invoice) {
	m.nextID++
	phantom := cloneInvoice(invoice)
	phantom.ID = m.nextID
	phantom.OwnerID = 99
	m.invoices[phantom.ID] = phantom
}

func cloneInvoice(inv *domain.Invoice) *domain.Invoice {
	c := *inv
	c.Items = nil
	if inv.Date != nil {
		d := *inv.Date
		c.Date = &d
	}
	return &c
}

func (m *memInvoiceRepo) taken(isQuotation bool, ref string, exceptID int64) bool {
	for id, inv := range m.invoices {
		if id != exceptID && inv.IsQuotation == isQuotation && inv.ReferenceNumber == ref {
			return true
		}
	}
	return false
}

func (m *memInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return err
	}
	m.creates++
	if m.conflicts > 0 {
		m.conflicts--
		m.racer(invoice)
	}
	if m.taken(invoice.IsQuotation, invoice.ReferenceNumber, 0) {
		return fmt.Errorf("reference %s: %w", invoice.ReferenceNumber, domain.ErrReferenceConflict)
	}
	m.nextID++
	invoice.ID = m.nextID
	invoice.Version = 1
	m.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (m *memInvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
	}
	return cloneInvoice(inv), nil
}

func (m *memInvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter) ([]*domain.Invoice, error) {
	out := make([]*domain.Invoice, 0)
	for _, inv := range m.invoices {
		if filter.OwnerID != nil && inv.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		if filter.Series != nil && inv.Series() != *filter.Series {
			continue
		}
		if filter.Paid != nil && inv.IsPaid != *filter.Paid {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(inv.ReferenceNumber+" "+inv.Notes), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memInvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return err
	}
	stored, ok := m.invoices[invoice.ID]
	if !ok {
		return fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
	}
	if stored.Version != invoice.Version {
		return domain.ErrConcurrentUpdate
	}
	m.updates++
	if m.updateConflicts > 0 && invoice.ReferenceNumber != stored.ReferenceNumber {
		m.updateConflicts--
		m.racer(invoice)
	}
	if m.taken(invoice.IsQuotation, invoice.ReferenceNumber, invoice.ID) {
		return fmt.Errorf("reference %s: %w", invoice.ReferenceNumber, domain.ErrReferenceConflict)
	}
	invoice.Version++
	m.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (m *memInvoiceRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
	}
	delete(m.invoices, id)
	delete(m.items, id)
	return nil
}

func (m *memInvoiceRepo) LastReference(ctx context.Context, series domain.Series) (string, error) {
	last, best := "", -1
	if mark, ok := m.marks[series]; ok {
		last, best = mark, seqOf(mark)
	}
	for _, inv := range m.invoices {
		if inv.Series() != series || inv.ReferenceNumber == "" {
			continue
		}
		if seq, err := domain.ReferenceSequence(inv.ReferenceNumber); err == nil && seq > best {
			last, best = inv.ReferenceNumber, seq
		}
	}
	return last, nil
}

func (m *memInvoiceRepo) RecordReference(ctx context.Context, series domain.Series, ref string) error {
	if _, err := domain.ReferenceSequence(ref); err != nil {
		return err
	}
	if mark, ok := m.marks[series]; !ok || seqOf(ref) > seqOf(mark) {
		m.marks[series] = ref
	}
	return nil
}

func seqOf(ref string) int {
	seq, err := domain.ReferenceSequence(ref)
	if err != nil {
		return -1
	}
	return seq
}

func (m *memInvoiceRepo) AddItem(ctx context.Context, invoiceID int64, item *domain.InvoiceItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m.nextItemID++
	item.ID = m.nextItemID
	item.InvoiceID = invoiceID
	c := *item
	m.items[invoiceID] = append(m.items[invoiceID], &c)
	return nil
}

func (m *memInvoiceRepo) GetItem(ctx context.Context, invoiceID, itemID int64) (*domain.InvoiceItem, error) {
	for _, it := range m.items[invoiceID] {
		if it.ID == itemID {
			c := *it
			return &c, nil
		}
	}
	return nil, fmt.Errorf("item not found: %w", domain.ErrNotFound)
}

func (m *memInvoiceRepo) UpdateItem(ctx context.Context, item *domain.InvoiceItem) error {
	for i, it := range m.items[item.InvoiceID] {
		if it.ID == item.ID {
			c := *item
			m.items[item.InvoiceID][i] = &c
			return nil
		}
	}
	return fmt.Errorf("item not found: %w", domain.ErrNotFound)
}

func (m *memInvoiceRepo) DeleteItem(ctx context.Context, invoiceID, itemID int64) error {
	items := m.items[invoiceID]
	for i, it := range items {
		if it.ID == itemID {
			m.items[invoiceID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item not found: %w", domain.ErrNotFound)
}

func (m *memInvoiceRepo) GetItems(ctx context.Context, invoiceID int64) ([]*domain.InvoiceItem, error) {
	out := make([]*domain.InvoiceItem, 0, len(m.items[invoiceID]))
	for _, it := range m.items[invoiceID] {
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

type memClientRepo struct {
	clients map[int64]*domain.Client
	nextID  int64
}

func newMemClientRepo(clients ...*domain.Client) *memClientRepo {
	m := &memClientRepo{clients: make(map[int64]*domain.Client)}
	for _, c := range clients {
		m.clients[c.ID] = c
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
	return m
}

func (m *memClientRepo) Create(ctx context.Context, client *domain.Client) error {
	m.nextID++
	client.ID = m.nextID
	c := *client
	m.clients[client.ID] = &c
	return nil
}
func (m *memClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client not found: %w", domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}
func (m *memClientRepo) GetByName(ctx context.Context, ownerID int64, name string) (*domain.Client, error) {
	for _, c := range m.clients {
		if c.OwnerID == ownerID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("client not found: %w", domain.ErrNotFound)
}
func (m *memClientRepo) List(ctx context.Context, ownerID *int64, includeArchived bool) ([]*domain.Client, error) {
	out := make([]*domain.Client, 0)
	for _, c := range m.clients {
		if ownerID != nil && c.OwnerID != *ownerID {
			continue
		}
		if c.IsArchived && !includeArchived {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
func (m *memClientRepo) Update(ctx context.Context, client *domain.Client) error {
	c := *client
	m.clients[client.ID] = &c
	return nil
}
func (m *memClientRepo) Archive(ctx context.Context, id int64) error {
	m.clients[id].IsArchived = true
	return nil
}
func (m *memClientRepo) Unarchive(ctx context.Context, id int64) error {
	m.clients[id].IsArchived = false
	return nil
}
func (m *memClientRepo) Delete(ctx context.Context, id int64) error {
	delete(m.clients, id)
	return nil
}

type memOwnerRepo struct {
	owners map[int64]*domain.Owner
	nextID int64
}

func newMemOwnerRepo() *memOwnerRepo {
	return &memOwnerRepo{owners: make(map[int64]*domain.Owner)}
}

func (m *memOwnerRepo) Create(ctx context.Context, owner *domain.Owner) error {
	for _, o := range m.owners {
		if o.Email == owner.Email {
			return fmt.Errorf("owner %s already exists", owner.Email)
		}
	}
	m.nextID++
	owner.ID = m.nextID
	c := *owner
	m.owners[owner.ID] = &c
	return nil
}
func (m *memOwnerRepo) GetByID(ctx context.Context, id int64) (*domain.Owner, error) {
	o, ok := m.owners[id]
	if !ok {
		return nil, fmt.Errorf("owner not found: %w", domain.ErrNotFound)
	}
	c := *o
	return &c, nil
}
func (m *memOwnerRepo) GetByEmail(ctx context.Context, email string) (*domain.Owner, error) {
	for _, o := range m.owners {
		if o.Email == strings.ToLower(strings.TrimSpace(email)) {
			c := *o
			return &c, nil
		}
	}
	return nil, fmt.Errorf("owner not found: %w", domain.ErrNotFound)
}
func (m *memOwnerRepo) List(ctx context.Context) ([]*domain.Owner, error) {
	out := make([]*domain.Owner, 0, len(m.owners))
	for _, o := range m.owners {
		c := *o
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
func (m *memOwnerRepo) Update(ctx context.Context, owner *domain.Owner) error {
	if _, ok := m.owners[owner.ID]; !ok {
		return fmt.Errorf("owner not found: %w", domain.ErrNotFound)
	}
	c := *owner
	m.owners[owner.ID] = &c
	return nil
}
func (m *memOwnerRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.owners[id]; !ok {
		return fmt.Errorf("owner not found: %w", domain.ErrNotFound)
	}
	delete(m.owners, id)
	return nil
}
