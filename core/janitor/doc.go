// Package janitor keeps the dead letters backlog bounded. Once the number
// of terminally failed tasks passes a threshold, a sweep deletes every
// dead-lettered record and the list itself. Below the threshold the
// backlog is left alone so operators can inspect recent failures.
package janitor
