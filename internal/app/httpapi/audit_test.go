package httpapi

import (
	"fmt"
	"testing"
)

func TestAuditLogWindowAndOrder(t *testing.T) {
	log := newAuditLog(3, nil)
	for i := 0; i < 5; i++ {
		log.record(auditEntry{Action: fmt.Sprintf("action-%d", i)})
	}

	got := log.recent(0)
	if len(got) != 3 {
		t.Fatalf("window = %d entries, want 3", len(got))
	}
	// Oldest first, only the last three survive the wrap.
	for i, entry := range got {
		want := fmt.Sprintf("action-%d", i+2)
		if entry.Action != want {
			t.Fatalf("entry %d = %q, want %q", i, entry.Action, want)
		}
	}

	tail := log.recent(1)
	if len(tail) != 1 || tail[0].Action != "action-4" {
		t.Fatalf("limit 1 = %+v, want newest entry", tail)
	}
}

func TestAuditLogBeforeWrap(t *testing.T) {
	log := newAuditLog(10, nil)
	log.record(auditEntry{Action: "first"})
	log.record(auditEntry{Action: "second"})

	got := log.recent(0)
	if len(got) != 2 || got[0].Action != "first" || got[1].Action != "second" {
		t.Fatalf("unexpected window: %+v", got)
	}
}
