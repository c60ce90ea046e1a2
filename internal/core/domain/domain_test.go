package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"admin", RoleAdmin, true},
		{" reader ", RoleReader, true},
		{"ROLE_ADMIN", RoleAdmin, true},
		{"LECTOR", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLoan_MarkReturned(t *testing.T) {
	l := &Loan{ID: 1, ItemID: 2, AccountID: 3, LoanDate: Day(time.Now())}
	on := time.Date(2024, 5, 10, 17, 45, 0, 0, time.UTC)

	if err := l.MarkReturned(on); err != nil {
		t.Fatalf("MarkReturned: %v", err)
	}
	if !l.Returned || l.ReturnDate == nil {
		t.Fatalf("expected returned loan with date, got %+v", l)
	}
	if !l.ReturnDate.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("return date not truncated to day: %v", l.ReturnDate)
	}

	if err := l.MarkReturned(on); !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned on second return, got %v", err)
	}
}

func TestEntityErrorsWrapTaxonomy(t *testing.T) {
	for _, err := range []error{ErrAccountNotFound, ErrItemNotFound, ErrLoanNotFound, ErrAuthorNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%v should match ErrNotFound", err)
		}
	}
	for _, err := range []error{ErrHandleTaken, ErrEmailTaken, ErrIsbnTaken, ErrBootstrapClaimed} {
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("%v should match ErrDuplicate", err)
		}
	}
}
