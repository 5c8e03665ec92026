// Package coldstore mirrors task records from the queue store into an
// analytics warehouse. A replicator loop scans every record on an interval
// and rewrites the matching warehouse row as a delete plus insert, so the
// warehouse survives the store's record TTLs. Rows that reached their final
// shape, completed with neutral feedback, are left untouched.
//
// Usage:
//
//	wh, err := coldstore.NewGreenplum(pool, "analytics", "tasks")
//	if err != nil {
//		return err
//	}
//	rep := coldstore.New(st, wh, coldstore.WithLogger(log))
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(rep.Run(ctx))
package coldstore
