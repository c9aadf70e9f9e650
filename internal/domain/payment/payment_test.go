package payment

import "testing"

func TestNewRecordValidation(t *testing.T) {
	rec, err := NewRecord("ref-1", 42, 7, 3, 5000, TypeApplicationFee)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if rec.Status != StatusPending {
		t.Fatalf("new records must start pending, got %s", rec.Status)
	}
	if rec.PaidAt != nil || rec.ApplicationID != nil {
		t.Fatal("new records must not carry settlement fields")
	}

	bad := []struct {
		name string
		fn   func() (*Record, error)
	}{
		{"empty reference", func() (*Record, error) { return NewRecord("  ", 42, 7, 3, 5000, TypeApplicationFee) }},
		{"bad applicant", func() (*Record, error) { return NewRecord("ref", 0, 7, 3, 5000, TypeApplicationFee) }},
		{"bad session", func() (*Record, error) { return NewRecord("ref", 42, -1, 3, 5000, TypeApplicationFee) }},
		{"bad program", func() (*Record, error) { return NewRecord("ref", 42, 7, 0, 5000, TypeApplicationFee) }},
		{"zero amount", func() (*Record, error) { return NewRecord("ref", 42, 7, 3, 0, TypeApplicationFee) }},
		{"bad type", func() (*Record, error) { return NewRecord("ref", 42, 7, 3, 5000, Type("donation")) }},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fn(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:   false,
		StatusPaid:      true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for status, want := range cases {
		r := Record{Status: status}
		if r.IsTerminal() != want {
			t.Errorf("%s: IsTerminal = %v, want %v", status, r.IsTerminal(), want)
		}
	}
}
