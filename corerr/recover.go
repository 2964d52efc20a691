package corerr

import (
	"fmt"
	"runtime/debug"
)

// Boundary runs fn inside the node-level try/except boundary mandated by
// the error handling design: every node runs inside a recovered call, and
// on panic or returned error it yields a structured *Error instead of
// propagating the raw failure up the orchestration graph.
//
// onError classifies a non-nil, non-*Error return from fn into a Kind; it
// is not consulted for panics, which are always classified KindTool as an
// unexpected internal failure, since a panicking
// node is, by definition, not one that failed through one of its declared
// error paths.
func Boundary(agent, node string, fn func() error, onError func(error) Kind) (err *Error) {
	defer func() {
		if r := recover(); r != nil {
			err = New(agent, node, KindTool, fmt.Sprintf("panic: %v", r)).
				WithDetails(map[string]any{"stack": string(debug.Stack())})
		}
	}()

	if runErr := fn(); runErr != nil {
		if structured, ok := runErr.(*Error); ok {
			return structured
		}
		kind := KindTool
		if onError != nil {
			kind = onError(runErr)
		}
		return New(agent, node, kind, runErr.Error()).WithCause(runErr)
	}
	return nil
}
