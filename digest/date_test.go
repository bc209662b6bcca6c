package digest

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       string
		wantOffset int
	}{
		{name: "gmt", raw: "Mon, 3 Jun 2024 12:00:00 GMT", want: "2024-06-03T12:00:00Z"},
		{name: "padded", raw: "  Fri, 31 May 2024 17:59:59 GMT  ", want: "2024-05-31T17:59:59Z"},
		{name: "numeric offset", raw: "Tue, 4 Jun 2024 09:30:00 +0200", want: "2024-06-04T09:30:00+02:00", wantOffset: 2 * 3600},
		{name: "no weekday", raw: "3 Jun 2024 12:00:00 -0500", want: "2024-06-03T12:00:00-05:00", wantOffset: -5 * 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			if err != nil {
				t.Fatalf("ParseDate() error = %v", err)
			}
			if s := FormatISO(got); s != tt.want {
				t.Errorf("ParseDate() = %s, want %s", s, tt.want)
			}
			if _, offset := got.Zone(); offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestParseDate_Errors(t *testing.T) {
	if _, err := ParseDate(""); !errors.Is(err, ErrEmptyDate) {
		t.Errorf("ParseDate(\"\") error = %v, want ErrEmptyDate", err)
	}
	if _, err := ParseDate("   "); !errors.Is(err, ErrEmptyDate) {
		t.Errorf("ParseDate(blank) error = %v, want ErrEmptyDate", err)
	}
	if _, err := ParseDate("not a date"); err == nil {
		t.Error("ParseDate() expected error for garbage input")
	}
}

func TestNormalizeDate(t *testing.T) {
	got := NormalizeDate("Mon, 3 Jun 2024 12:00:00 GMT", discardLogger())
	if got == nil {
		t.Fatal("NormalizeDate() = nil, want date")
	}
	if !got.Equal(time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("NormalizeDate() = %v", got)
	}

	for _, raw := range []string{"", "garbage", "32 Foo 2024"} {
		if got := NormalizeDate(raw, discardLogger()); got != nil {
			t.Errorf("NormalizeDate(%q) = %v, want nil", raw, got)
		}
		if got := NormalizeDate(raw, nil); got != nil {
			t.Errorf("NormalizeDate(%q) with nil logger = %v, want nil", raw, got)
		}
	}
}
