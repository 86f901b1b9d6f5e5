package engine

import "errors"

// ErrNotFound is returned when a law or article cannot be resolved at
// all (not merely repealed).
var ErrNotFound = errors.New("not found")

// ErrAmbiguous names the ambiguous-reference case of the error
// taxonomy. No Engine operation returns it: resolveLaw always settles
// on the first candidate of the duplicate-law tie-break.
var ErrAmbiguous = errors.New("ambiguous match")
