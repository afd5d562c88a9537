package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"ambulance-finance/internal/models"
	"ambulance-finance/pkg/storage"

	"github.com/goccy/go-json"
)

// UploadReceipt sends a receipt file for transactionID and returns the stored
// object. Its URL is the receiptUrl to pass to MarkAsCollected.
func (c *TransactionClient) UploadReceipt(ctx context.Context, transactionID, filename string, r io.Reader) (*storage.UploadResponse, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("client: build receipt form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("client: read receipt: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("client: build receipt form: %w", err)
	}

	var ack models.Ack
	path := c.path("transactions", transactionID, "receipts")
	if err := c.send(ctx, http.MethodPost, path, nil, &buf, form.FormDataContentType(), &ack); err != nil {
		return nil, err
	}

	var uploaded storage.UploadResponse
	if err := json.Unmarshal(ack.Data, &uploaded); err != nil {
		return nil, fmt.Errorf("client: decode receipt: %w", err)
	}
	return &uploaded, nil
}

func (c *TransactionClient) ListReceipts(ctx context.Context, transactionID string) ([]*storage.FileInfo, error) {
	var files []*storage.FileInfo
	if err := c.do(ctx, http.MethodGet, c.path("transactions", transactionID, "receipts"), nil, nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}
