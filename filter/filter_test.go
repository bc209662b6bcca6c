package filter

import (
	"testing"
)

func TestFilter_Allows(t *testing.T) {
	f, err := New(Options{Subject: "cs daily Subj-class mailing"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		subject string
		want    bool
	}{
		{subject: "cs daily Subj-class mailing 100 1", want: true},
		{subject: "CS DAILY SUBJ-CLASS MAILING 7", want: true},
		{subject: "math daily Subj-class mailing 3", want: false},
		{subject: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := f.Allows(tt.subject); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.subject, got, tt.want)
			}
		})
	}
}

func TestFilter_Exclude(t *testing.T) {
	f, err := New(Options{Subject: "daily", ExcludeSubject: []string{`^Re:`, " "}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !f.Allows("cs daily Subj-class mailing") {
		t.Error("Expected digest subject to be allowed")
	}
	if f.Allows("Re: cs daily Subj-class mailing") {
		t.Error("Expected reply to be filtered out")
	}
}

func TestFilter_NoFilters(t *testing.T) {
	f, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !f.Allows("Any Message") {
		t.Error("Expected message to be allowed when no filters are active")
	}
}

func TestFilter_InvalidPattern(t *testing.T) {
	if _, err := New(Options{ExcludeSubject: []string{"("}}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}
