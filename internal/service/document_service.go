package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/mail"
	"github.com/andy/invoicer/internal/render"
	"github.com/andy/invoicer/internal/repository"
)

// DocumentService renders stored invoices and delivers them
type DocumentService interface {
	// Render writes the invoice in the given format to w
	Render(ctx context.Context, actor domain.Actor, id int64, format render.Format, w io.Writer) error

	// Export renders the invoice into dir (the configured output directory
	// when empty) and returns the file path
	Export(ctx context.Context, actor domain.Actor, id int64, format render.Format, dir string) (string, error)

	// Send mails the invoice PDF to the given recipients, or to the client's
	// email address when none are given
	Send(ctx context.Context, actor domain.Actor, id int64, to []string) error
}

type documentService struct {
	invoices  InvoiceService
	ownerRepo repository.OwnerRepository
	sender    mail.Sender
	outputDir string
	currency  string
	log       *logger.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	invoices InvoiceService,
	ownerRepo repository.OwnerRepository,
	sender mail.Sender,
	outputDir, currency string,
	log *logger.Logger,
) DocumentService {
	return &documentService{
		invoices:  invoices,
		ownerRepo: ownerRepo,
		sender:    sender,
		outputDir: outputDir,
		currency:  currency,
		log:       log,
	}
}

// snapshot loads everything a renderer prints
func (s *documentService) snapshot(ctx context.Context, actor domain.Actor, id int64) (render.Document, error) {
	inv, err := s.invoices.GetInvoice(ctx, actor, id)
	if err != nil {
		return render.Document{}, err
	}
	owner, err := s.ownerRepo.GetByID(ctx, inv.OwnerID)
	if err != nil {
		return render.Document{}, err
	}
	return render.Document{
		Owner:    owner,
		Client:   inv.Client,
		Invoice:  inv,
		Items:    inv.Items,
		Currency: s.currency,
	}, nil
}

func (s *documentService) Render(ctx context.Context, actor domain.Actor, id int64, format render.Format, w io.Writer) error {
	r, err := render.New(format)
	if err != nil {
		return err
	}
	doc, err := s.snapshot(ctx, actor, id)
	if err != nil {
		return err
	}
	return r.Render(w, doc)
}

func (s *documentService) Export(ctx context.Context, actor domain.Actor, id int64, format render.Format, dir string) (string, error) {
	r, err := render.New(format)
	if err != nil {
		return "", err
	}
	doc, err := s.snapshot(ctx, actor, id)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = s.outputDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	// Render to memory first so a failed render leaves no partial file
	var buf bytes.Buffer
	if err := r.Render(&buf, doc); err != nil {
		return "", err
	}

	path := filepath.Join(dir, render.FileName(doc.Invoice, r))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	s.log.Info("invoice exported", "invoice_id", id, "path", path)
	return path, nil
}

func (s *documentService) Send(ctx context.Context, actor domain.Actor, id int64, to []string) error {
	doc, err := s.snapshot(ctx, actor, id)
	if err != nil {
		return err
	}

	if len(to) == 0 {
		if doc.Client == nil || doc.Client.Email == "" {
			return fmt.Errorf("client has no email address: pass --to")
		}
		to = []string{doc.Client.Email}
	}

	r, err := render.New(render.FormatPDF)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, doc); err != nil {
		return err
	}

	inv := doc.Invoice
	title := render.Title(inv)
	from := ""
	if doc.Owner != nil {
		from = doc.Owner.Name
	}

	msg := mail.Message{
		To:      to,
		Subject: fmt.Sprintf("%s %s from %s", title, inv.ReferenceNumber, from),
		Body: fmt.Sprintf("Dear %s,\n\nPlease find attached %s %s for %s.\n\nRegards,\n%s\n",
			doc.Client.Name, title, inv.ReferenceNumber,
			render.FormatAmount(s.currency, inv.GrandTotal), from),
		Attachments: []mail.Attachment{{
			Filename:    render.FileName(inv, r),
			ContentType: "application/pdf",
			Data:        buf.Bytes(),
		}},
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}

	s.log.Info("invoice sent", "invoice_id", id, "reference", inv.ReferenceNumber, "recipients", len(to))
	return nil
}
