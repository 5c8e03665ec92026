// Package pg opens verified pgx connection pools for the cold store
// warehouse.
//
// Connect builds a pgxpool from cfg, applies the pool size and lifetime
// settings, and pings with exponential backoff before handing the pool
// over, so misconfigured warehouses surface at startup:
//
//	pool, err := pg.Connect(ctx, cfg.WarehouseConfig())
//	if err != nil {
//		return err
//	}
//	wh, err := coldstore.NewGreenplum(pool, schema, table)
//
// Healthcheck wraps the pool ping for the readiness probe, and
// IsNotFoundError classifies pgx.ErrNoRows for callers that treat a
// missing row as a normal outcome. Greenplum speaks the Postgres wire
// protocol, which is why the warehouse rides this driver.
package pg
