package errors

import (
	stderrors "errors"

	"github.com/vango-dev/signalshell/pkg/router"
)

// FromRouteError maps route table and navigation failures to coded
// errors. Errors it does not recognise are wrapped as build failures.
func FromRouteError(err error) *ShellError {
	if err == nil {
		return nil
	}
	if se := asShellError(err); se != nil {
		return se
	}

	var code, hint string
	switch {
	case stderrors.Is(err, router.ErrDuplicateName):
		code, hint = "E101", "Rename one of the routes."
	case stderrors.Is(err, router.ErrDuplicatePath):
		code, hint = "E102", "Remove or change one of the conflicting paths."
	case stderrors.Is(err, router.ErrInvalidPath):
		code, hint = "E103", `Use a path such as "/upload".`
	case stderrors.Is(err, router.ErrNoComponent):
		code, hint = "E104", "Set Component for eager views or Lazy for views loaded on demand."
	case stderrors.Is(err, router.ErrViewLoad):
		code = "E150"
	default:
		return New("E142").Wrap(err)
	}

	se := New(code).Wrap(err)
	if hint != "" {
		se.WithSuggestion(hint)
	}
	return se
}

func asShellError(err error) *ShellError {
	var se *ShellError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}
