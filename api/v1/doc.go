// Package v1 implements the public HTTP API: prompt enqueueing, per-task
// status streaming, task listings, feedback capture, and the handler
// availability stream.
//
// Every endpoint is a generic handler constructor, so an application can
// instantiate them for its own context type and mount them wherever it
// likes:
//
//	r.Route("/api/v1", func(api router.Router[*app.Context]) {
//		api.Get("/subscribe/{task_id}", v1.Subscribe[*app.Context](queue, log))
//		api.Get("/handlers/stream", v1.HandlersStream[*app.Context](fleet))
//		api.Post("/feedback", v1.Feedback[*app.Context](sink))
//
//		api.Group(func(authed router.Router[*app.Context]) {
//			authed.Use(middleware.Auth[*app.Context](authSvc))
//			authed.Post("/enqueue", v1.Enqueue[*app.Context](queue, fleet))
//			authed.Post("/feedback/{task_id}", v1.TaskFeedback[*app.Context](queue))
//			authed.Get("/tasks", v1.Tasks[*app.Context](queue))
//			authed.Get("/first-tasks", v1.FirstTasks[*app.Context](queue))
//		})
//	})
//
// Authenticated endpoints resolve the caller through middleware.GetUserID,
// so they must sit behind the auth middleware. The streaming endpoints are
// Server-Sent Events and require a response writer that supports flushing.
package v1
