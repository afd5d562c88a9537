package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageUploadAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewLocalStorage(dir, "http://localhost:8080/receipts/")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}

	resp, err := store.Upload(ctx, &UploadRequest{
		Key:         "receipts/txn1/a.txt",
		Reader:      strings.NewReader("cash 120.00"),
		ContentType: "text/plain",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if resp.URL != "http://localhost:8080/receipts/receipts/txn1/a.txt" {
		t.Errorf("Upload() URL = %q", resp.URL)
	}
	if resp.Size != int64(len("cash 120.00")) {
		t.Errorf("Upload() Size = %d", resp.Size)
	}

	data, err := os.ReadFile(filepath.Join(dir, "receipts", "txn1", "a.txt"))
	if err != nil || string(data) != "cash 120.00" {
		t.Fatalf("stored file = %q, %v", data, err)
	}

	if _, err := store.Upload(ctx, &UploadRequest{Key: "receipts/txn2/b.txt", Reader: strings.NewReader("x")}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	files, err := store.ListFiles(ctx, "receipts/txn1/")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 1 || files[0].Key != "receipts/txn1/a.txt" || files[0].ContentType != "text/plain" {
		t.Errorf("ListFiles() = %+v", files)
	}

	exists, err := store.FileExists(ctx, "receipts/txn1/a.txt")
	if err != nil || !exists {
		t.Errorf("FileExists() = %v, %v", exists, err)
	}

	if err := store.Delete(ctx, "receipts/txn1/a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "receipts/txn1/a.txt"); err != nil {
		t.Errorf("Delete() of missing file error = %v", err)
	}
	if exists, _ := store.FileExists(ctx, "receipts/txn1/a.txt"); exists {
		t.Error("FileExists() after Delete = true")
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "receipts/a.png", want: "receipts/a.png"},
		{key: "/receipts//a.png", want: "receipts/a.png"},
		{key: `receipts\a.png`, want: "receipts/a.png"},
		{key: "", wantErr: true},
		{key: "../etc/passwd", wantErr: true},
		{key: "receipts/../../x", wantErr: true},
	}

	for _, tt := range tests {
		got, err := CleanKey(tt.key)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("CleanKey(%q) error = %v, want ErrInvalidKey", tt.key, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("CleanKey(%q) = %q, %v, want %q", tt.key, got, err, tt.want)
		}
	}
}
