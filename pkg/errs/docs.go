// Package errs provides the error types shared by all dddkit packages.
//
// Every error kind pairs a sentinel (for example ErrValueIsRequired) with a
// struct type carrying the details. The struct's Unwrap returns the sentinel,
// so callers classify errors with errors.Is and reach the details with
// errors.As:
//
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // handle the miss
//	}
//
// Constructors come in plain and WithCause variants; the cause is rendered
// into the message but never changes the classification.
package errs
