package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/mail"
	"github.com/andy/invoicer/internal/render"
)

type captureSender struct {
	sent []mail.Message
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg mail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type documentFixture struct {
	svc     *documentService
	sender  *captureSender
	invoice *domain.Invoice
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()

	inv := newInvoiceFixture()
	owners := newMemOwnerRepo()
	owners.owners[alice.OwnerID] = &domain.Owner{ID: alice.OwnerID, Email: alice.Email, Name: "Alice Traders"}

	created, err := inv.svc.CreateInvoice(context.Background(), alice, CreateInvoiceInput{
		ClientID:      10,
		TaxPercentage: pdec("10"),
		Items:         sampleItems(),
	})
	require.NoError(t, err)

	sender := &captureSender{}
	return &documentFixture{
		svc: &documentService{
			invoices:  inv.svc,
			ownerRepo: owners,
			sender:    sender,
			outputDir: t.TempDir(),
			currency:  "Rs",
			log:       logger.Nop(),
		},
		sender:  sender,
		invoice: created,
	}
}

func TestDocumentService_RenderText(t *testing.T) {
	f := newDocumentFixture(t)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Render(context.Background(), alice, f.invoice.ID, render.FormatText, &buf))

	out := buf.String()
	assert.Contains(t, out, "I_SAE-0001")
	assert.Contains(t, out, "Globex")
	assert.Contains(t, out, "27.50")

	err := f.svc.Render(context.Background(), bob, f.invoice.ID, render.FormatText, &buf)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Export(t *testing.T) {
	f := newDocumentFixture(t)
	dir := t.TempDir()

	path, err := f.svc.Export(context.Background(), alice, f.invoice.ID, render.FormatPDF, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "I_SAE-0001.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = f.svc.Export(context.Background(), alice, f.invoice.ID, render.Format("docx"), dir)
	assert.Error(t, err)
}

func TestDocumentService_Send(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	// The client has no email on file
	err := f.svc.Send(ctx, alice, f.invoice.ID, nil)
	assert.Error(t, err)
	assert.Empty(t, f.sender.sent)

	require.NoError(t, f.svc.Send(ctx, alice, f.invoice.ID, []string{"ap@globex.example"}))
	require.Len(t, f.sender.sent, 1)

	msg := f.sender.sent[0]
	assert.Equal(t, []string{"ap@globex.example"}, msg.To)
	assert.Contains(t, msg.Subject, "I_SAE-0001")
	assert.Contains(t, msg.Body, "Rs 27.50")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "I_SAE-0001.pdf", msg.Attachments[0].Filename)
	assert.True(t, bytes.HasPrefix(msg.Attachments[0].Data, []byte("%PDF")))

	f.sender.err = mail.ErrNotConfigured
	assert.ErrorIs(t, f.svc.Send(ctx, alice, f.invoice.ID, []string{"ap@globex.example"}), mail.ErrNotConfigured)
}
