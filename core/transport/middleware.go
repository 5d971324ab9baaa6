package transport

import "context"

// SendFunc sends one request and returns the raw reply body. It is the unit
// threaded through the middleware chain.
type SendFunc func(ctx context.Context, request Request) ([]byte, error)

// Middleware wraps a SendFunc. Middlewares are applied outermost-first: the
// first middleware passed to [WithMiddleware] runs first on the way in and
// last on the way out.
type Middleware func(next SendFunc) SendFunc

// chain wraps base with middlewares so that middlewares[0] is outermost.
func chain(base SendFunc, middlewares []Middleware) SendFunc {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}
