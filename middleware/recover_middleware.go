package middleware

import (
	"context"
	"fmt"
)

// Recover wraps fn so that a panic inside it becomes an error instead of
// crashing the dispatch goroutine. The teacher repo has no direct analogue
// — mini-rpc's handlers simply return an error value — but the same
// "never crash the runtime" discipline from server.Server.handleRequest
// applies here to a pipeline stage that, unlike a handler, has no error
// return of its own to lean on if the user-supplied middleware panics.
func Recover(fn Func) Func {
	return func(ctx context.Context, mc *Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("middleware panicked: %v", r)
			}
		}()
		return fn(ctx, mc)
	}
}
