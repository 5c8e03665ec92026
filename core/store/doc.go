// Package store abstracts the shared key/list state the queue system
// runs on. The Store interface covers exactly the primitives the design
// uses: string records with TTLs, lists with head/tail discipline,
// blocking pops, cursor scans, and atomic pipelines.
//
// Two implementations ship: Redis for production and Memory for tests.
// They share observable semantics, so every orchestration component can
// be exercised hermetically against Memory and deployed against Redis
// unchanged.
//
//	st := store.NewRedis(client) // or store.NewMemory()
//
//	err := st.Pipeline(ctx, func(p store.Pipe) error {
//		p.Set("task:"+t.ID, record, time.Hour)
//		p.LPush("task_queue", t.ID)
//		p.LPush("task_queue:"+t.HandlerID, t.ID)
//		return nil
//	})
package store
