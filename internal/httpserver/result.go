package httpserver

import (
	"net/http"

	"shopfront/webshop/internal/view"
)

type resultKind int

const (
	kindRender resultKind = iota + 1
	kindRedirect
	kindJSON
)

// Result is what a handler asks the pipeline to write once the session has
// been committed.
type Result struct {
	kind     resultKind
	status   int
	view     string
	page     view.Viewer
	location string
	body     any
}

func Render(status int, name string, page view.Viewer) Result {
	return Result{kind: kindRender, status: status, view: name, page: page}
}

// Redirect answers with 302 Found, which browsers follow with a GET.
func Redirect(location string) Result {
	return Result{kind: kindRedirect, status: http.StatusFound, location: location}
}

func JSON(status int, body any) Result {
	return Result{kind: kindJSON, status: status, body: body}
}

func (r Result) Status() int { return r.status }
