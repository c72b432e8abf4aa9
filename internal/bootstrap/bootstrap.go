package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tenantbackend/dbinit/internal/logger"
)

// duplicateObject is the SQLSTATE the server reports when a CREATE TYPE hits
// an existing type of the same name.
const duplicateObject = "42710"

// Querier is the minimal connection surface the executor needs. It is
// satisfied by *pgx.Conn, pgxpool.Pool and the pgxmock interfaces.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Executor applies the fixed provisioning manifest to one database. Every
// step is independently idempotent, so a run that failed partway can simply
// be invoked again. The executor opens no transaction across steps; each
// statement stands on its own, which keeps mid-sequence resume semantics.
type Executor struct {
	conn   Querier
	logger logger.LoggerInterface
	steps  []Step
}

// New creates an executor for the given admin connection. The database and
// role names feed the grant and search path statements; everything else in
// the manifest is compiled in.
func New(conn Querier, log logger.LoggerInterface, database, adminRole string) *Executor {
	return &Executor{
		conn:   conn,
		logger: log,
		steps:  Steps(database, adminRole),
	}
}

// Run executes the provisioning sequence in order. The first error that is
// not a tolerated duplicate aborts the run immediately, wrapped with the
// index and name of the offending step. Later steps are never attempted
// after a failure.
func (e *Executor) Run(ctx context.Context) error {
	runID := uuid.NewString()
	e.logger.Infof("Starting database bootstrap run %s (%d steps)", runID, len(e.steps))

	for i, step := range e.steps {
		if err := e.runStep(ctx, step); err != nil {
			return fmt.Errorf("bootstrap step %d/%d (%s) failed: %w", i+1, len(e.steps), step.Name, err)
		}
	}

	e.logger.Infof("Database bootstrap run %s completed successfully", runID)
	return nil
}

func (e *Executor) runStep(ctx context.Context, step Step) error {
	_, err := e.conn.Exec(ctx, step.SQL)
	if err == nil {
		e.logger.Debug(step.Name + ": applied")
		return nil
	}

	if step.TolerateDuplicate && isDuplicateObject(err) {
		e.logger.Warnf("%s: object already exists, skipping", step.Name)
		if step.Kind == KindEnumType {
			e.checkEnumLabels(ctx, step)
		}
		return nil
	}

	return err
}

// checkEnumLabels compares the labels of an existing enum type against the
// desired definition and warns on drift. The tolerated duplicate means the
// type was provisioned before; a differing label set is a definition
// conflict that the run accepts but should not hide. The check itself is
// advisory, so a failure to read the catalog only warns as well.
func (e *Executor) checkEnumLabels(ctx context.Context, step Step) {
	existing, err := e.enumLabels(ctx, step.EnumName)
	if err != nil {
		e.logger.Warnf("Could not read labels of existing type %s: %v", step.EnumName, err)
		return
	}

	if !equalLabels(existing, step.EnumLabels) {
		e.logger.Warnf("Type %s exists with labels %v, expected %v - the existing definition is kept",
			step.EnumName, existing, step.EnumLabels)
	}
}

func (e *Executor) enumLabels(ctx context.Context, typeName string) ([]string, error) {
	rows, err := e.conn.Query(ctx, `
        SELECT e.enumlabel
        FROM pg_type t
        JOIN pg_enum e ON t.oid = e.enumtypid
        WHERE t.typname = $1
        ORDER BY e.enumsortorder
    `, typeName)
	if err != nil {
		return nil, fmt.Errorf("error fetching enum labels: %v", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("error scanning enum label: %v", err)
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == duplicateObject
}

func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
