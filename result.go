package staticpress

// Status tags the outcome of a data loader.
type Status int

const (
	// StatusOK means the props are complete.
	StatusOK Status = iota
	// StatusNotFound means the requested entity does not exist. It is terminal
	// for the route until the content changes.
	StatusNotFound
	// StatusTransient means a dependency failed. The props may still be usable
	// (degraded) but the page should be regenerated soon.
	StatusTransient
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusTransient:
		return "transient"
	}
	return "unknown"
}

// Result is the tagged outcome of loading props P for one page.
type Result[P any] struct {
	Status Status
	Props  P
	// Err is the underlying cause for StatusTransient and, when known, StatusNotFound.
	Err error
}

// OK reports whether the result carries complete props.
func (r Result[P]) OK() bool { return r.Status == StatusOK }

func ok[P any](p P) Result[P] {
	return Result[P]{Status: StatusOK, Props: p}
}

func notFound[P any](err error) Result[P] {
	return Result[P]{Status: StatusNotFound, Err: err}
}

func transient[P any](p P, err error) Result[P] {
	return Result[P]{Status: StatusTransient, Props: p, Err: err}
}
