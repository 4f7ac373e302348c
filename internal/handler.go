package internal

// Handler is the terminal request handler of a route.
//
// Example:
//
//	type ShowPost struct {
//	    repo *repository.Posts
//	}
//
//	func (h *ShowPost) Handle(r *anvil.Request) (*anvil.Response, error) {
//	    post, err := h.repo.Find(r.Context(), r.Params().Get("id"))
//	    if err != nil {
//	        return nil, err
//	    }
//	    return anvil.JSON(http.StatusOK, post)
//	}
type Handler interface {
	Handle(r *Request) (*Response, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(r *Request) (*Response, error)

// Handle calls f.
func (f HandlerFunc) Handle(r *Request) (*Response, error) {
	return f(r)
}

// Middleware wraps request handling with cross-cutting behavior.
// A middleware may short-circuit by returning a response without calling
// next, and may rewrite the request by passing a different *Request to
// next. Errors returned from next propagate unless the middleware handles
// them.
type Middleware interface {
	Handle(r *Request, next HandlerFunc) (*Response, error)
}

// MiddlewareFunc adapts a plain function to the Middleware interface.
type MiddlewareFunc func(r *Request, next HandlerFunc) (*Response, error)

// Handle calls f.
func (f MiddlewareFunc) Handle(r *Request, next HandlerFunc) (*Response, error) {
	return f(r, next)
}
