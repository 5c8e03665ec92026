// Package response builds the handler.Response values the API returns.
//
// Handlers never write to the ResponseWriter directly; they return one
// of these constructors and the router renders it. Failures travel as
// errors so the mounted error handler owns status mapping:
//
//	func Enqueue(mgr *queue.Manager) handler.HandlerFunc[*app.Context] {
//		return func(ctx *app.Context) handler.Response {
//			t, err := mgr.Enqueue(ctx, req)
//			if err != nil {
//				return response.Error(err)
//			}
//			return response.JSON(enqueueReply{TaskID: t.ID})
//		}
//	}
//
// HTTPError is the error currency: predeclared values (ErrBadRequest,
// ErrUnauthorized, ...) refined with WithMessage, WithDetails, or
// WithError render as a JSON body with the matching status through
// JSONErrorHandler. Foreign errors that expose StatusCode() keep their
// status; anything else becomes a 500 with the cause in the details.
//
// SSE streams a channel of values as Server-Sent Events, with comment
// pings every DefaultSSEKeepAlive to hold idle connections open. The
// subscription endpoints feed it task records and availability
// snapshots.
package response
