// Package receipts stores collection receipts and hands back the URL that is
// sent with a mark-collected request.
package receipts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"ambulance-finance/internal/utils"
	"ambulance-finance/internal/validators"
	"ambulance-finance/pkg/logger"
	"ambulance-finance/pkg/storage"

	"github.com/google/uuid"
)

const (
	keyPrefix       = "receipts"
	jpegQuality     = 85
	defaultMaxSide  = 1600
	maxReceiptBytes = 10 << 20
	cacheControl    = "private, max-age=31536000"
)

var (
	ErrUnsupportedFile      = errors.New("receipt must be a jpg, png or pdf file")
	ErrReceiptTooLarge      = errors.New("receipt exceeds the 10 MB limit")
	ErrInvalidTransactionID = errors.New("invalid transaction id")
)

// Uploader writes receipts to a storage provider under
// receipts/<transactionId>/<uuid><ext>. Images larger than the configured
// bounds are downscaled before upload.
type Uploader struct {
	storage   storage.StorageProvider
	maxWidth  uint
	maxHeight uint
	urlTTL    time.Duration
	logger    *logger.Logger
}

func NewUploader(provider storage.StorageProvider, maxWidth, maxHeight uint, log *logger.Logger) *Uploader {
	if maxWidth == 0 {
		maxWidth = defaultMaxSide
	}
	if maxHeight == 0 {
		maxHeight = defaultMaxSide
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Uploader{
		storage:   provider,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		urlTTL:    7 * 24 * time.Hour,
		logger:    log,
	}
}

// Upload stores the receipt read from r and returns where it landed. The
// response URL is what MarkAsCollected expects as receiptUrl.
func (u *Uploader) Upload(ctx context.Context, transactionID, filename string, r io.Reader) (*storage.UploadResponse, error) {
	if !validators.IsValidObjectID(transactionID) {
		return nil, ErrInvalidTransactionID
	}
	if !utils.IsReceiptFile(filename) {
		return nil, ErrUnsupportedFile
	}

	data, err := io.ReadAll(io.LimitReader(r, maxReceiptBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	if len(data) > maxReceiptBytes {
		return nil, ErrReceiptTooLarge
	}

	ext := utils.GetFileExtension(filename)
	if utils.IsImageFile(filename) {
		data, ext, err = u.downscale(data)
		if err != nil {
			return nil, err
		}
	}

	key := path.Join(keyPrefix, transactionID, uuid.NewString()+ext)
	resp, err := u.storage.Upload(ctx, &storage.UploadRequest{
		Key:          key,
		Reader:       bytes.NewReader(data),
		ContentType:  storage.ContentTypeFor(key),
		Size:         int64(len(data)),
		CacheControl: cacheControl,
		Metadata: map[string]string{
			"transaction_id":    transactionID,
			"original_filename": path.Base(filename),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload receipt: %w", err)
	}

	u.logger.WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"key":            resp.Key,
		"size":           resp.Size,
	}).Info("Receipt uploaded")

	return resp, nil
}

// downscale re-encodes the image within the size bounds. The returned
// extension follows the decoded format, not the file name.
func (u *Uploader) downscale(data []byte) ([]byte, string, error) {
	img, format, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}

	bounds := utils.GetImageDimensions(img)
	if uint(bounds.Width) <= u.maxWidth && uint(bounds.Height) <= u.maxHeight {
		return data, "." + normalizeFormat(format), nil
	}

	resized := utils.ResizeImage(img, u.maxWidth, u.maxHeight)
	var buf bytes.Buffer
	if err := utils.EncodeImage(resized, format, &buf, jpegQuality); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}

	u.logger.WithFields(map[string]interface{}{
		"from": fmt.Sprintf("%dx%d", bounds.Width, bounds.Height),
		"to":   fmt.Sprintf("%dx%d", resized.Bounds().Dx(), resized.Bounds().Dy()),
	}).Debug("Receipt downscaled")

	return buf.Bytes(), "." + normalizeFormat(format), nil
}

// List returns the receipts stored for a transaction, oldest first, each
// with a URL that can be opened.
func (u *Uploader) List(ctx context.Context, transactionID string) ([]*storage.FileInfo, error) {
	if !validators.IsValidObjectID(transactionID) {
		return nil, ErrInvalidTransactionID
	}

	files, err := u.storage.ListFiles(ctx, path.Join(keyPrefix, transactionID)+"/")
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	for _, f := range files {
		url, err := u.storage.GetURL(ctx, f.Key, u.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("receipt url: %w", err)
		}
		f.URL = url
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].LastModified.Before(files[j].LastModified)
	})
	return files, nil
}

func normalizeFormat(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
