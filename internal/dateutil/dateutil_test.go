package dateutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr error
	}{
		{name: "iso tokens", format: "YYYY-MM-DD", want: "2006-01-02"},
		{name: "short tokens", format: "D/M/YY", want: "2/1/06"},
		{name: "month names", format: "MMMM MMM", want: "January Jan"},
		{name: "preset long", format: "long", want: "January 2, 2006"},
		{name: "preset is case-insensitive", format: "US", want: "01/02/2006"},
		{name: "bracket literal", format: "[Issued] D MMM", want: "Issued 2 Jan"},
		{name: "bracket keeps tokens literal", format: "[YYYY]", want: "YYYY"},
		{name: "unknown characters pass through", format: "DD.MM", want: "02.01"},
		{name: "empty", format: "", wantErr: ErrInvalidDateFormat},
		{name: "unclosed bracket", format: "[oops YYYY", wantErr: ErrInvalidDateFormat},
		{name: "too long", format: strings.Repeat("Y", MaxFormatLength+1), wantErr: ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Layout(tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Layout(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Layout(%q) unexpected error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("Layout(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 7, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr error
	}{
		{name: "auto", value: "auto", want: "2026-03-07"},
		{name: "today", value: "Today", want: "2026-03-07"},
		{name: "auto with format", value: "auto:DD/MM/YYYY", want: "07/03/2026"},
		{name: "auto with preset", value: "auto:long", want: "March 7, 2026"},
		{name: "literal date passes through", value: "2025-12-31", want: "2025-12-31"},
		{name: "free text passes through", value: "end of month", want: "end of month"},
		{name: "empty passes through", value: "", want: ""},
		{name: "auto with empty format", value: "auto:", wantErr: ErrInvalidDateFormat},
		{name: "today with format", value: "today:iso", wantErr: ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tt.value, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.value, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestNetDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		terms  string
		want   int
		wantOK bool
	}{
		{terms: "Net 30", want: 30, wantOK: true},
		{terms: "net-15", want: 15, wantOK: true},
		{terms: "NET_0", want: 0, wantOK: true},
		{terms: "Due on receipt"},
		{terms: "Net thirty"},
		{terms: "Net 30 days"},
		{terms: ""},
	}

	for _, tt := range tests {
		got, ok := NetDays(tt.terms)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("NetDays(%q) = (%d, %v), want (%d, %v)", tt.terms, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDueDate(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)

	due, ok := DueDate(issued, "Net 30")
	if !ok {
		t.Fatal("DueDate() ok = false, want true")
	}
	if want := time.Date(2026, time.February, 19, 0, 0, 0, 0, time.UTC); !due.Equal(want) {
		t.Errorf("DueDate() = %v, want %v", due, want)
	}

	if _, ok := DueDate(issued, "Due on receipt"); ok {
		t.Error("DueDate() ok = true for non-net terms")
	}
}
