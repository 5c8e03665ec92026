// Package router dispatches HTTP requests to handlers operating on a
// typed per-request context.
//
// The router is generic over its context type. The application supplies
// a factory once and every handler receives the concrete type, no
// assertions at the call sites:
//
//	r := router.New[*app.Context](
//		router.WithContextFactory(app.NewContext),
//		router.WithErrorHandler(response.JSONErrorHandler[*app.Context](errMapper)),
//		router.WithLogger(log),
//	)
//	r.Use(middleware.RequestID[*app.Context]())
//	r.Route("/api/v1", func(api router.Router[*app.Context]) {
//		api.Post("/enqueue", v1.Enqueue(deps))
//		api.Get("/subscribe/{task_id}", v1.Subscribe(deps))
//	})
//
// Patterns are literal path segments with two extensions: {name}
// captures exactly one segment and a trailing * catches every path
// below it. Static segments beat parameters at the same depth and
// matching never backtracks. Trailing slashes are significant. A
// catch-all answers only the method it was registered under, so a
// root OPTIONS wildcard serves preflight everywhere without turning
// every unknown GET into a 405.
//
// Dispatch failures reach the error handler as ErrNotFound,
// ErrMethodNotAllowed, or ErrNilResponse; each carries its HTTP status
// so JSON error handlers render the proper code. Panics inside
// handlers are recovered and delivered the same way, unless the
// response already started, in which case they are only logged.
package router
