package calendar

import (
	"errors"
	"testing"
)

func TestValidator(t *testing.T) {
	v := DefaultValidator()

	tests := []struct {
		name    string
		year    int
		month   int
		day     int
		wantErr error
	}{
		{"valid", 2024, 2, 29, nil},
		{"first gregorian year", 1583, 1, 1, nil},
		{"before gregorian", 1582, 12, 31, ErrYearOutOfRange},
		{"after max", 10000, 1, 1, ErrYearOutOfRange},
		{"month zero", 2024, 0, 1, ErrMonthOutOfRange},
		{"month thirteen", 2024, 13, 1, ErrMonthOutOfRange},
		{"no leap day", 2023, 2, 29, ErrDayOutOfRange},
		{"day zero", 2023, 1, 0, ErrDayOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cd, err := v.Date(tt.year, tt.month, tt.day)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Date() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Date() error = %v", err)
			}
			if cd.Year != tt.year || int(cd.Month) != tt.month-1 {
				t.Errorf("Date() = %v", cd)
			}
		})
	}
}

func TestValidatorCustomBounds(t *testing.T) {
	v := Validator{MinYear: 1759}
	if err := v.ValidateYear(1758); !errors.Is(err, ErrYearOutOfRange) {
		t.Errorf("ValidateYear(1758) error = %v, want ErrYearOutOfRange", err)
	}
	if err := v.ValidateYear(50000); err != nil {
		t.Errorf("ValidateYear(50000) with no max error = %v", err)
	}

	var zero Validator
	if err := zero.ValidateYear(1); err != nil {
		t.Errorf("zero Validator ValidateYear(1) error = %v", err)
	}
	if err := zero.ValidateYear(0); !errors.Is(err, ErrYearOutOfRange) {
		t.Errorf("zero Validator ValidateYear(0) error = %v", err)
	}
}

func TestValidatorEpochRange(t *testing.T) {
	lo, hi := DefaultValidator().EpochRange()
	if lo != -141349 || hi != 2932896 {
		t.Errorf("EpochRange() = %d, %d; want -141349, 2932896", lo, hi)
	}

	lo, hi = Validator{}.EpochRange()
	if lo != -719162 || hi != 2932896 {
		t.Errorf("zero Validator EpochRange() = %d, %d", lo, hi)
	}
	if cd, day := ResolveEpochDay(lo); cd.Year != 1 || cd.Month != January || day != 1 {
		t.Errorf("ResolveEpochDay(%d) = %v %d, want January 1", lo, cd, day)
	}
}
