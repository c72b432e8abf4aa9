package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tenantbackend/dbinit/internal/bootstrap"
)

// Check is the outcome of a single catalog assertion.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Report aggregates all catalog checks for one database.
type Report struct {
	Checks []Check
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failures returns the checks that did not pass.
func (r *Report) Failures() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.OK {
			failed = append(failed, c)
		}
	}
	return failed
}

func (r *Report) add(name string, ok bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
}

// Run checks that the catalog of the connected database matches the state
// the bootstrap sequence establishes: both extensions installed, both enum
// types present with the exact label sets, the tenant schema in place, and
// the database-level search path set to (public, tenant_schema). It mutates
// nothing.
func Run(ctx context.Context, conn bootstrap.Querier, database string) (*Report, error) {
	report := &Report{}

	for _, ext := range []string{bootstrap.ExtensionUUIDOSSP, bootstrap.ExtensionPgTrgm} {
		present, err := extensionExists(ctx, conn, ext)
		if err != nil {
			return nil, fmt.Errorf("failed to check extension %s: %w", ext, err)
		}
		report.add("extension "+ext, present, detailPresent(present))
	}

	enums := map[string][]string{
		bootstrap.EnumUserStatus:   bootstrap.UserStatusLabels,
		bootstrap.EnumTenantStatus: bootstrap.TenantStatusLabels,
	}
	for _, name := range []string{bootstrap.EnumUserStatus, bootstrap.EnumTenantStatus} {
		labels, err := enumLabels(ctx, conn, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check type %s: %w", name, err)
		}
		want := enums[name]
		switch {
		case labels == nil:
			report.add("type "+name, false, "missing")
		case !equalLabels(labels, want):
			report.add("type "+name, false,
				fmt.Sprintf("labels (%s), expected (%s)", strings.Join(labels, ", "), strings.Join(want, ", ")))
		default:
			report.add("type "+name, true, "present")
		}
	}

	schemaPresent, err := schemaExists(ctx, conn, bootstrap.TenantSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema %s: %w", bootstrap.TenantSchema, err)
	}
	report.add("schema "+bootstrap.TenantSchema, schemaPresent, detailPresent(schemaPresent))

	searchPath, err := databaseSearchPath(ctx, conn, database)
	if err != nil {
		return nil, fmt.Errorf("failed to check search path: %w", err)
	}
	wantPath := "public, " + bootstrap.TenantSchema
	if normalizeSearchPath(searchPath) == normalizeSearchPath(wantPath) {
		report.add("search path", true, searchPath)
	} else {
		report.add("search path", false,
			fmt.Sprintf("%q, expected %q", searchPath, wantPath))
	}

	return report, nil
}

func extensionExists(ctx context.Context, conn bootstrap.Querier, name string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = $1)", name).Scan(&exists)
	return exists, err
}

func schemaExists(ctx context.Context, conn bootstrap.Querier, name string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_namespace WHERE nspname = $1)", name).Scan(&exists)
	return exists, err
}

// enumLabels returns the labels of the named enum type in sort order, or nil
// if the type does not exist.
func enumLabels(ctx context.Context, conn bootstrap.Querier, typeName string) ([]string, error) {
	rows, err := conn.Query(ctx, `
        SELECT e.enumlabel
        FROM pg_type t
        JOIN pg_enum e ON t.oid = e.enumtypid
        WHERE t.typname = $1
        ORDER BY e.enumsortorder
    `, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

// databaseSearchPath reads the database-level search_path override from
// pg_db_role_setting. It returns an empty string when no database-level
// setting exists.
func databaseSearchPath(ctx context.Context, conn bootstrap.Querier, database string) (string, error) {
	var setting string
	err := conn.QueryRow(ctx, `
        SELECT s.setting
        FROM pg_db_role_setting rs
        JOIN pg_database d ON d.oid = rs.setdatabase,
        LATERAL unnest(rs.setconfig) AS s(setting)
        WHERE d.datname = $1
          AND rs.setrole = 0
          AND s.setting LIKE 'search_path=%'
    `, database).Scan(&setting)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimPrefix(setting, "search_path="), nil
}

func normalizeSearchPath(path string) string {
	parts := strings.Split(path, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return strings.Join(parts, ",")
}

func detailPresent(present bool) string {
	if present {
		return "present"
	}
	return "missing"
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
