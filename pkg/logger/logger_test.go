package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newBufferLogger(t *testing.T, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	log, err := NewLogger(&Config{Level: DebugLevel, Format: format, AppName: "AmbulanceFinance", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)
	return log, &buf
}

func TestJSONFormatterIncludesFields(t *testing.T) {
	log, buf := newBufferLogger(t, "json")
	txnID := primitive.NewObjectID()

	log.WithField("component", "ledger").WithError(errors.New("boom")).LogTransactionEvent(txnID, "payment_processed", -40, nil)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	want := map[string]interface{}{
		"level":          "info",
		"app":            "AmbulanceFinance",
		"version":        "1.0.0",
		"component":      "ledger",
		"error":          "boom",
		"transaction_id": txnID.Hex(),
		"event":          "payment_processed",
		"amount":         -40.0,
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	log, buf := newBufferLogger(t, "text")
	child := log.WithField("view", "wallet")

	log.Info("parent")
	if strings.Contains(buf.String(), "view=wallet") {
		t.Errorf("parent logger picked up child field: %q", buf.String())
	}

	buf.Reset()
	child.Info("child")
	if !strings.Contains(buf.String(), "view=wallet") || !strings.Contains(buf.String(), "[INFO]") {
		t.Errorf("child output = %q", buf.String())
	}
}

func TestLogAPIRequestLevels(t *testing.T) {
	log, buf := newBufferLogger(t, "text")

	log.LogAPIRequest("GET", "/api/v1/transactions/:id", 200, 12*time.Millisecond, "req-1")
	if !strings.Contains(buf.String(), "[INFO]") || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("2xx output = %q", buf.String())
	}

	buf.Reset()
	log.LogAPIRequest("PATCH", "/api/v1/transactions/:id/collect", 500, time.Millisecond, "")
	if !strings.Contains(buf.String(), "[ERROR]") || strings.Contains(buf.String(), "request_id") {
		t.Errorf("5xx output = %q", buf.String())
	}
}

func TestWithContextReadsRequestID(t *testing.T) {
	log, buf := newBufferLogger(t, "text")
	ctx := context.WithValue(context.Background(), RequestIDKey, "abc")

	log.WithContext(ctx).Warn("slow")
	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("output = %q", buf.String())
	}
}
