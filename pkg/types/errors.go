package types

import "fmt"

// RefactorError represents errors in refactoring operations
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

// Is matches another *RefactorError of the same Type, so callers can write
// errors.Is(err, &RefactorError{Type: WalkError}).
func (e *RefactorError) Is(target error) bool {
	t, ok := target.(*RefactorError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == "" && t.File == ""
}

type ErrorType int

const (
	ParseError ErrorType = iota
	TypeCheckError
	FileSystemError
	InvalidOperation
	UnsupportedDeclaration
	WalkError
	ConfigError
)

func (t ErrorType) String() string {
	switch t {
	case ParseError:
		return "parse"
	case TypeCheckError:
		return "typecheck"
	case FileSystemError:
		return "filesystem"
	case InvalidOperation:
		return "invalid-operation"
	case UnsupportedDeclaration:
		return "unsupported-declaration"
	case WalkError:
		return "walk"
	case ConfigError:
		return "config"
	default:
		return "unknown"
	}
}

// Errorf builds a RefactorError without a location.
func Errorf(t ErrorType, format string, args ...any) *RefactorError {
	return &RefactorError{Type: t, Message: fmt.Sprintf(format, args...)}
}
