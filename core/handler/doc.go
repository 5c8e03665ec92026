// Package handler defines the contract between the routing layer and
// request handlers: a Context interface the application implements, a
// HandlerFunc generic over that context, and a Response type that
// separates deciding the reply from rendering it.
//
// Handlers return a Response instead of writing to the wire. That keeps
// the handler body pure (easy to test without a running server) and
// lets middleware decorate the eventual write:
//
//	func show(ctx *app.Context) handler.Response {
//		t, err := mgr.Task(ctx, ctx.Param("task_id"))
//		if err != nil {
//			return response.Error(err)
//		}
//		return response.JSON(t)
//	}
//
// The application defines its own context type implementing Context and
// instantiates the generic router with it, so handlers get typed access
// to application state without casts.
package handler
