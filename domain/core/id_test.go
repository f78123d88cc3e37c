package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseReportID tests report ID parsing
func TestParseReportID(t *testing.T) {
	valid := NewReportID()

	tests := []struct {
		input    string
		expected ReportID
		hasError bool
	}{
		{valid.String(), valid, false},
		{"  " + valid.String() + " ", valid, false},
		{"", "", true},
		{"   ", "", true},
		{"not-a-uuid", "", true},
	}

	for _, test := range tests {
		result, err := ParseReportID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestHasherFieldBoundaries verifies length prefixing keeps field boundaries
func TestHasherFieldBoundaries(t *testing.T) {
	a := (&Hasher{}).Add("ab", "c").Sum()
	b := (&Hasher{}).Add("a", "bc").Sum()
	if a == b {
		t.Fatalf("expected different hashes for different field splits")
	}

	again := (&Hasher{}).Add("ab", "c").Sum()
	if a != again {
		t.Fatalf("hash is not deterministic: %s vs %s", a, again)
	}
	if len(a.Short()) != 12 {
		t.Errorf("Short() should be 12 chars, got %q", a.Short())
	}
}
