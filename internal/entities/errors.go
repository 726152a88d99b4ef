package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Causes carried by VerificationError
var (
	ErrInvalidDeclaration = errors.New("invalid relation declaration")
	ErrNaming             = errors.New("invalid relation naming")
	ErrUnknownType        = errors.New("unknown record type")
	ErrUnknownRelation    = errors.New("unknown relation")
	ErrTypeNotAllowed     = errors.New("record type not allowed")
	ErrCardinality        = errors.New("too many records for has-one relation")
	ErrReadOnlyRelation   = errors.New("mirrored relation is read-only")
	ErrNotPersisted       = errors.New("record is not persisted")
)

// VerificationError reports a declaration or assignment that breaks the
// rules of a relation. It is returned synchronously and never retried.
type VerificationError struct {
	Owner    TypeName
	Relation string
	Err      error
	Detail   string
}

// NewVerificationError creates a VerificationError with a formatted detail
func NewVerificationError(owner TypeName, relation string, cause error, format string, args ...interface{}) *VerificationError {
	return &VerificationError{
		Owner:    owner,
		Relation: relation,
		Err:      cause,
		Detail:   fmt.Sprintf(format, args...),
	}
}

func (e *VerificationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Owner))
	if e.Relation != "" {
		b.WriteString(".")
		b.WriteString(e.Relation)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// DanglingReferenceError reports edge endpoints that no longer resolve to a
// record, typically because the record was deleted without a cascade.
type DanglingReferenceError struct {
	Owner    Endpoint
	Relation string
	Missing  []Endpoint
}

func (e *DanglingReferenceError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, ep := range e.Missing {
		missing[i] = ep.String()
	}
	return fmt.Sprintf("%s.%s: dangling reference to %s", e.Owner, e.Relation, strings.Join(missing, ", "))
}
