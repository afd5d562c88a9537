package utils

import (
	"path/filepath"
	"strings"
)

var (
	ReceiptImageTypes    = []string{"jpg", "jpeg", "png"}
	ReceiptDocumentTypes = []string{"pdf"}
)

func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func IsAllowedFileType(filename string, allowedTypes []string) bool {
	ext := strings.TrimPrefix(GetFileExtension(filename), ".")

	for _, allowedType := range allowedTypes {
		if ext == allowedType {
			return true
		}
	}

	return false
}

func IsImageFile(filename string) bool {
	return IsAllowedFileType(filename, ReceiptImageTypes)
}

func IsDocumentFile(filename string) bool {
	return IsAllowedFileType(filename, ReceiptDocumentTypes)
}

// IsReceiptFile reports whether filename has an extension accepted for
// collection receipts.
func IsReceiptFile(filename string) bool {
	return IsImageFile(filename) || IsDocumentFile(filename)
}
