// internal/expr/errors.go
package expr

import (
	"errors"
	"fmt"
)

// ErrEvaluation is the root of every error produced by this package.
// Callers classify with errors.Is against the more specific values below.
var ErrEvaluation = errors.New("evaluation error")

var (
	ErrUnknownIdentifier    = fmt.Errorf("%w: unknown identifier", ErrEvaluation)
	ErrUnknownFunction      = fmt.Errorf("%w: unknown function", ErrEvaluation)
	ErrMalformedExpression  = fmt.Errorf("%w: malformed expression", ErrEvaluation)
	ErrUnmatchedParenthesis = fmt.Errorf("%w: unmatched parenthesis", ErrEvaluation)
	ErrArity                = fmt.Errorf("%w: wrong number of arguments", ErrEvaluation)
	ErrType                 = fmt.Errorf("%w: type mismatch", ErrEvaluation)
)

func errAt(kind error, pos int, format string, args ...any) error {
	return fmt.Errorf("%w: %s (at %d)", kind, fmt.Sprintf(format, args...), pos)
}
