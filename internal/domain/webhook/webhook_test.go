package webhook

import (
	"testing"

	"payhub/internal/domain/enums"
)

func TestEventLifecycle(t *testing.T) {
	e, err := NewEvent("evt_1", "m1", enums.Esnekpos, []byte(`{}`))
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if e.Type != EventNotSupported {
		t.Fatalf("expected default type, got %s", e.Type)
	}
	if err := e.UpdateProcessingStatus(ProcessingCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !e.IsProcessed() || e.ProcessedAt == nil {
		t.Fatal("expected processed event")
	}
	if err := e.UpdateProcessingStatus(ProcessingFailed); err == nil {
		t.Fatal("completed -> failed should be rejected")
	}
	if err := e.MarkForReprocessing(); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if e.ProcessingStatus != ProcessingQueued || e.ProcessedAt != nil {
		t.Fatalf("unexpected state after reprocess: %s", e.ProcessingStatus)
	}
}

func TestNewEventValidation(t *testing.T) {
	if _, err := NewEvent("evt_1", "", enums.Esnekpos, nil); err == nil {
		t.Fatal("expected merchant validation error")
	}
	if _, err := NewEvent("evt_1", "m1", 0, nil); err == nil {
		t.Fatal("expected connector validation error")
	}
}

func TestEventTypeClass(t *testing.T) {
	tests := map[EventType]Class{
		EventPaymentSucceeded: ClassPayment,
		EventRefundFailed:     ClassRefund,
		EventDisputeOpened:    ClassDispute,
		EventMandateRevoked:   ClassMandate,
		EventNotSupported:     ClassNone,
	}
	for typ, want := range tests {
		if got := typ.Class(); got != want {
			t.Fatalf("%s: expected %s, got %s", typ, want, got)
		}
	}
}
