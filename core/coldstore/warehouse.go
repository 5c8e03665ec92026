package coldstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	goosedb "github.com/pressly/goose/v3/database"

	"github.com/promptq/promptq/core/task"
	"github.com/promptq/promptq/integration/database/pg"
)

// Row is one warehouse record, a task record flattened for analytics.
// Document maps travel as JSON text so the insert can cast them to jsonb.
type Row struct {
	TaskID          string
	Prompt          string
	Status          string
	TaskType        string
	UserID          string
	ShortTaskID     string
	QueuedAt        *time.Time
	FinishedAt      *time.Time
	Context         string
	Retries         int
	StartPosition   int
	CurrentPosition int
	ResultText      string
	ResultDocs      string
	ErrorText       string
	ErrorDocs       string
	Feedback        string
}

// rowFromTask flattens a task record into its warehouse shape. The
// task_type column carries the full handler id.
func rowFromTask(t task.Task) Row {
	return Row{
		TaskID:          t.ID,
		Prompt:          t.Prompt,
		Status:          string(t.Status),
		TaskType:        t.HandlerID,
		UserID:          t.UserID,
		ShortTaskID:     t.ShortID,
		QueuedAt:        parseTime(t.QueuedAt),
		FinishedAt:      parseTime(t.FinishedAt),
		Context:         t.Context,
		Retries:         t.Retries,
		StartPosition:   t.StartPosition,
		CurrentPosition: t.CurrentPosition,
		ResultText:      t.Result.Text,
		ResultDocs:      docsJSON(t.Result.RelevantDocs),
		ErrorText:       t.Error.Text,
		ErrorDocs:       docsJSON(t.Error.RelevantDocs),
		Feedback:        string(t.Feedback),
	}
}

func docsJSON(docs map[string]string) string {
	if len(docs) == 0 {
		return "{}"
	}
	data, _ := json.Marshal(docs)
	return string(data)
}

// parseTime reads the RFC 3339 timestamps stamped on task records. Missing
// or unreadable values map to a NULL column.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

// Warehouse is the analytics destination for task records.
type Warehouse interface {
	// Ensure creates the destination table and its indexes when missing.
	Ensure(ctx context.Context) error
	// Settled reports whether the stored row for the task id reached its
	// final shape, completed with neutral feedback, and needs no rewrite.
	Settled(ctx context.Context, taskID string) (bool, error)
	// Replace swaps the stored row for the task id with a fresh one inside
	// one transaction, reporting whether a previous row existed.
	Replace(ctx context.Context, row Row) (existed bool, err error)
}

// identPattern limits warehouse identifiers to plain lowercase SQL names,
// keeping config values safe to splice into statements.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Greenplum stores task rows in a Greenplum warehouse table.
type Greenplum struct {
	pool *pgxpool.Pool

	schema string
	table  string

	settledStmt string
	deleteStmt  string
	insertStmt  string
}

// NewGreenplum validates the schema and table names and returns a warehouse
// bound to them.
func NewGreenplum(pool *pgxpool.Pool, schema, table string) (*Greenplum, error) {
	if !identPattern.MatchString(schema) || !identPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q.%q", ErrInvalidIdentifier, schema, table)
	}
	target := schema + "." + table
	return &Greenplum{
		pool:   pool,
		schema: schema,
		table:  table,

		settledStmt: fmt.Sprintf(
			"SELECT status, feedback FROM %s WHERE task_id = $1 LIMIT 1", target),
		deleteStmt: fmt.Sprintf(
			"DELETE FROM %s WHERE task_id = $1", target),
		insertStmt: fmt.Sprintf(`INSERT INTO %s (
    task_id, prompt, status, task_type, user_id,
    short_task_id, queued_at, finished_at, context,
    retries, start_position, current_position,
    result_text, result_relevant_docs,
    error_text, error_relevant_docs, feedback
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, $15, $16::jsonb, $17)`, target),
	}, nil
}

// Ensure applies the warehouse migration through goose. The version table
// lives next to the warehouse table, so separately configured warehouses
// migrate independently.
func (g *Greenplum) Ensure(ctx context.Context) error {
	versions, err := goosedb.NewStore(goosedb.DialectPostgres,
		fmt.Sprintf("%s.goose_%s_version", g.schema, g.table))
	if err != nil {
		return fmt.Errorf("warehouse versions: %w", err)
	}

	db := stdlib.OpenDBFromPool(g.pool)
	defer db.Close()

	provider, err := goose.NewProvider("", db, nil,
		goose.WithStore(versions),
		goose.WithGoMigrations(
			goose.NewGoMigration(1, &goose.GoFunc{RunDB: g.createTable}, nil),
		),
	)
	if err != nil {
		return fmt.Errorf("warehouse migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("warehouse migrations: %w", err)
	}
	return nil
}

// createTable runs outside a transaction so an index that already exists
// does not abort the remaining statements.
func (g *Greenplum) createTable(ctx context.Context, db *sql.DB) error {
	target := g.schema + "." + g.table
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    task_id TEXT,
    prompt TEXT,
    status TEXT,
    task_type TEXT,
    user_id TEXT,
    short_task_id TEXT,
    queued_at TIMESTAMP WITH TIME ZONE,
    finished_at TIMESTAMP WITH TIME ZONE,
    context TEXT,
    retries INTEGER,
    start_position INTEGER,
    current_position INTEGER,
    result_text TEXT,
    result_relevant_docs JSONB,
    error_text TEXT,
    error_relevant_docs JSONB,
    feedback TEXT,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
) DISTRIBUTED RANDOMLY`, target)
	if _, err := db.ExecContext(ctx, create); err != nil {
		return err
	}

	// Greenplum predates CREATE INDEX IF NOT EXISTS; an existing index
	// surfaces as a duplicate relation instead.
	indexes := []string{
		fmt.Sprintf("CREATE INDEX idx_%s_task_id ON %s (task_id)", g.table, target),
		fmt.Sprintf("CREATE INDEX idx_%s_status ON %s (status)", g.table, target),
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !isDuplicateRelation(err) {
			return err
		}
	}
	return nil
}

// 42P07 duplicate_table covers indexes as well.
func isDuplicateRelation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P07"
}

// Settled checks the stored row, not the live record: once a completed row
// with neutral feedback landed, the replicator stops rewriting it.
func (g *Greenplum) Settled(ctx context.Context, taskID string) (bool, error) {
	var status, feedback *string
	err := g.pool.QueryRow(ctx, g.settledStmt, taskID).Scan(&status, &feedback)
	if pg.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != nil && *status == string(task.StatusCompleted) &&
		feedback != nil && *feedback == string(task.FeedbackNeutral), nil
}

// Replace deletes any previous row for the task id and inserts the fresh
// one, both inside a single transaction.
func (g *Greenplum) Replace(ctx context.Context, row Row) (bool, error) {
	var existed bool
	err := pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, g.deleteStmt, row.TaskID)
		if err != nil {
			return err
		}
		existed = tag.RowsAffected() > 0

		_, err = tx.Exec(ctx, g.insertStmt,
			row.TaskID, row.Prompt, row.Status, row.TaskType, row.UserID,
			row.ShortTaskID, row.QueuedAt, row.FinishedAt, row.Context,
			row.Retries, row.StartPosition, row.CurrentPosition,
			row.ResultText, row.ResultDocs,
			row.ErrorText, row.ErrorDocs, row.Feedback,
		)
		return err
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}
