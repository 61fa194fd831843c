package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an analysis failed. Kinds are logged and counted;
// callers of the HTTP API only ever see the generic failure message.
type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "invalid_request"
	KindTransport      ErrorKind = "transport"
	KindProcessing     ErrorKind = "processing"
	KindTimeout        ErrorKind = "timeout"
	KindUpstream       ErrorKind = "upstream"
	KindFormat         ErrorKind = "format"
	KindParse          ErrorKind = "parse"
	KindSchema         ErrorKind = "schema"
	KindInternal       ErrorKind = "internal"
)

type AnalysisError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind carried by err, or KindInternal for anything that
// did not come from the pipeline.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
