package realtime

import (
	"encoding/json"
	"testing"
)

// The payload shape here mirrors what the notify_document_status trigger
// builds; a drift between the two silently breaks event routing.
func TestEvent_DecodesTriggerPayload(t *testing.T) {
	payload := `{"owner_id":"o-1","document_id":"ud-9","status":"ready"}`

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if ev.OwnerID != "o-1" {
		t.Errorf("OwnerID = %q, want o-1", ev.OwnerID)
	}
	if ev.DocumentID != "ud-9" {
		t.Errorf("DocumentID = %q, want ud-9", ev.DocumentID)
	}
	if ev.Status != "ready" {
		t.Errorf("Status = %q, want ready", ev.Status)
	}
}
