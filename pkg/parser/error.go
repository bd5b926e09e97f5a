package parser

import "fmt"

// ParseError is one malformed-construct report. Position is a 1-based
// line/column pair captured at the point synchronization began.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// ErrorList collects every ParseError a single parse produced. The
// parser never stops at the first error; per spec it synchronizes and
// resumes so that a program with several unrelated typos is reported
// in one pass rather than one error per invocation.
type ErrorList []*ParseError

func (el ErrorList) Error() string {
	if len(el) == 1 {
		return el[0].Error()
	}
	msg := fmt.Sprintf("%d parse errors:", len(el))
	for _, e := range el {
		msg += "\n  " + e.Error()
	}
	return msg
}
