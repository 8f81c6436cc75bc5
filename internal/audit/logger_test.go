package audit

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
)

func TestLogger_ThreadSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	concurrency := 50
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				logger.Log(Entry{
					UserID:   "u-1",
					Action:   "document.update",
					Resource: "document",
				})
			}
		}()
	}
	wg.Wait()

	// Verify output is valid JSON stream
	decoder := json.NewDecoder(&buf)
	count := 0
	for decoder.More() {
		var entry Entry
		err := decoder.Decode(&entry)
		if err != nil {
			t.Fatalf("Failed to decode entry %d: %v", count, err)
		}
		count++
	}

	expected := concurrency * iterations
	if count != expected {
		t.Errorf("Expected %d entries, got %d", expected, count)
	}
}

func TestLogger_SetsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Log(Entry{Action: "user.login", Resource: "user"})

	var entry Entry
	if err := json.NewDecoder(&buf).Decode(&entry); err != nil {
		t.Fatalf("Failed to decode entry: %v", err)
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}
