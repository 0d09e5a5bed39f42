package parse

import (
	"errors"
	"fmt"
)

var (
	ErrUnmatchedOpeningBracket = errors.New("unmatched opening bracket")
	ErrUnmatchedClosingBracket = errors.New("unmatched closing bracket")
	ErrUnexpectedEndOfTokens   = errors.New("unexpected end of tokens")
	ErrUnexpectedToken         = errors.New("unexpected token")
	ErrUnterminatedSwitch      = errors.New("unterminated switch statement")
	ErrUnterminatedMatch       = errors.New("unterminated match expression")
)

// Error is a structural fault: the bracket stack or an expected token
// assumption was violated. Expected and Found hold token lexemes and are
// empty when they do not apply.
type Error struct {
	Line     int
	Expected string
	Found    string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Expected != "" && e.Found != "":
		return fmt.Sprintf("line %d: %v: expected %q, found %q", e.Line, e.Err, e.Expected, e.Found)
	case e.Found != "":
		return fmt.Sprintf("line %d: %v: found %q", e.Line, e.Err, e.Found)
	case e.Expected != "":
		return fmt.Sprintf("line %d: %v: expected %q", e.Line, e.Err, e.Expected)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
