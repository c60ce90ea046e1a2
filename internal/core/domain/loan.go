package domain

import "time"

// MaxOpenLoansPerAccount caps how many unreturned loans a borrower may hold.
const MaxOpenLoansPerAccount = 3

// Loan records one borrowing of a catalog item. It starts open and can be
// returned exactly once.
type Loan struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	AccountID  int64      `json:"account_id"`
	LoanDate   time.Time  `json:"loan_date"`
	ReturnDate *time.Time `json:"return_date"`
	Returned   bool       `json:"returned"`
}

func (l *Loan) Open() bool { return !l.Returned }

// MarkReturned moves the loan to its terminal state. The return date is set
// together with the flag so the two never disagree.
func (l *Loan) MarkReturned(on time.Time) error {
	if l.Returned {
		return ErrAlreadyReturned
	}
	d := Day(on)
	l.Returned = true
	l.ReturnDate = &d
	return nil
}

// Day truncates t to midnight UTC. Loan and return dates carry no time of day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
