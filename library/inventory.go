package library

import (
	pkgerrors "library-lms/errors"
)

// Copy-count rules. Every book keeps 0 <= available <= total, and the copies
// not on the shelf (total - available) are the ones out on loan or lost while
// borrowed. The guarded UPDATEs in the store enforce the same bounds at
// write time; these functions decide what a caller may ask for.

// InitialAvailable is the shelf count of a newly catalogued book.
func InitialAvailable(total int) int {
	return total
}

// ResolveCopies computes the available count after total copies change from
// oldTotal to newTotal. requested, when set, may lower the shelf count (e.g.
// damaged copies) but may never raise it above what the loans allow.
func ResolveCopies(oldTotal, oldAvailable, newTotal int, requested *int) (int, error) {
	onLoan := oldTotal - oldAvailable
	if newTotal < onLoan {
		return 0, pkgerrors.Newf(pkgerrors.CodeRuleViolation,
			"new total copies (%d) cannot be less than currently borrowed copies (%d)", newTotal, onLoan)
	}
	derived := newTotal - onLoan
	if requested == nil {
		return derived, nil
	}
	switch {
	case *requested < 0:
		return 0, pkgerrors.New(pkgerrors.CodeRuleViolation, "available copies cannot be negative")
	case *requested > newTotal:
		return 0, pkgerrors.Newf(pkgerrors.CodeRuleViolation,
			"available copies (%d) cannot exceed total copies (%d)", *requested, newTotal)
	case *requested > derived:
		return 0, pkgerrors.Newf(pkgerrors.CodeRuleViolation,
			"available copies (%d) cannot exceed total minus copies on loan (%d)", *requested, derived)
	}
	return *requested, nil
}
