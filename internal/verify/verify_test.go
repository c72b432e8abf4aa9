package verify

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantbackend/dbinit/internal/bootstrap"
)

func expectExtension(mock pgxmock.PgxConnIface, name string, present bool) {
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM pg_extension").
		WithArgs(name).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(present))
}

func expectEnum(mock pgxmock.PgxConnIface, name string, labels []string) {
	rows := mock.NewRows([]string{"enumlabel"})
	for _, label := range labels {
		rows.AddRow(label)
	}
	mock.ExpectQuery("SELECT e.enumlabel").
		WithArgs(name).
		WillReturnRows(rows)
}

func expectSchema(mock pgxmock.PgxConnIface, name string, present bool) {
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM pg_namespace").
		WithArgs(name).
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(present))
}

func expectSearchPath(mock pgxmock.PgxConnIface, database, setting string) {
	mock.ExpectQuery("FROM pg_db_role_setting").
		WithArgs(database).
		WillReturnRows(mock.NewRows([]string{"setting"}).AddRow("search_path=" + setting))
}

func TestRun(t *testing.T) {
	t.Run("fully bootstrapped database passes every check", func(t *testing.T) {
		mock, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer mock.Close(context.Background())

		expectExtension(mock, bootstrap.ExtensionUUIDOSSP, true)
		expectExtension(mock, bootstrap.ExtensionPgTrgm, true)
		expectEnum(mock, bootstrap.EnumUserStatus, bootstrap.UserStatusLabels)
		expectEnum(mock, bootstrap.EnumTenantStatus, bootstrap.TenantStatusLabels)
		expectSchema(mock, bootstrap.TenantSchema, true)
		expectSearchPath(mock, "tenant_db", "public, tenant_schema")

		report, err := Run(context.Background(), mock, "tenant_db")

		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Len(t, report.Checks, 6)
		assert.Empty(t, report.Failures())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing extension fails its check", func(t *testing.T) {
		mock, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer mock.Close(context.Background())

		expectExtension(mock, bootstrap.ExtensionUUIDOSSP, true)
		expectExtension(mock, bootstrap.ExtensionPgTrgm, false)
		expectEnum(mock, bootstrap.EnumUserStatus, bootstrap.UserStatusLabels)
		expectEnum(mock, bootstrap.EnumTenantStatus, bootstrap.TenantStatusLabels)
		expectSchema(mock, bootstrap.TenantSchema, true)
		expectSearchPath(mock, "tenant_db", "public, tenant_schema")

		report, err := Run(context.Background(), mock, "tenant_db")

		require.NoError(t, err)
		assert.False(t, report.OK())
		require.Len(t, report.Failures(), 1)
		assert.Equal(t, "extension pg_trgm", report.Failures()[0].Name)
	})

	t.Run("enum with drifted labels fails with both label sets", func(t *testing.T) {
		mock, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer mock.Close(context.Background())

		expectExtension(mock, bootstrap.ExtensionUUIDOSSP, true)
		expectExtension(mock, bootstrap.ExtensionPgTrgm, true)
		expectEnum(mock, bootstrap.EnumUserStatus, []string{"enabled", "disabled"})
		expectEnum(mock, bootstrap.EnumTenantStatus, bootstrap.TenantStatusLabels)
		expectSchema(mock, bootstrap.TenantSchema, true)
		expectSearchPath(mock, "tenant_db", "public, tenant_schema")

		report, err := Run(context.Background(), mock, "tenant_db")

		require.NoError(t, err)
		require.Len(t, report.Failures(), 1)
		failure := report.Failures()[0]
		assert.Equal(t, "type user_status", failure.Name)
		assert.Contains(t, failure.Detail, "enabled")
		assert.Contains(t, failure.Detail, "expected")
	})

	t.Run("missing enum type reports missing", func(t *testing.T) {
		mock, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer mock.Close(context.Background())

		expectExtension(mock, bootstrap.ExtensionUUIDOSSP, true)
		expectExtension(mock, bootstrap.ExtensionPgTrgm, true)
		expectEnum(mock, bootstrap.EnumUserStatus, nil)
		expectEnum(mock, bootstrap.EnumTenantStatus, bootstrap.TenantStatusLabels)
		expectSchema(mock, bootstrap.TenantSchema, true)
		expectSearchPath(mock, "tenant_db", "public, tenant_schema")

		report, err := Run(context.Background(), mock, "tenant_db")

		require.NoError(t, err)
		require.Len(t, report.Failures(), 1)
		assert.Equal(t, "missing", report.Failures()[0].Detail)
	})

	t.Run("absent database level search path fails", func(t *testing.T) {
		mock, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer mock.Close(context.Background())

		expectExtension(mock, bootstrap.ExtensionUUIDOSSP, true)
		expectExtension(mock, bootstrap.ExtensionPgTrgm, true)
		expectEnum(mock, bootstrap.EnumUserStatus, bootstrap.UserStatusLabels)
		expectEnum(mock, bootstrap.EnumTenantStatus, bootstrap.TenantStatusLabels)
		expectSchema(mock, bootstrap.TenantSchema, true)
		mock.ExpectQuery("FROM pg_db_role_setting").
			WithArgs("tenant_db").
			WillReturnRows(mock.NewRows([]string{"setting"}))

		report, err := Run(context.Background(), mock, "tenant_db")

		require.NoError(t, err)
		require.Len(t, report.Failures(), 1)
		assert.Equal(t, "search path", report.Failures()[0].Name)
	})

	t.Run("quoted search path entries are accepted", func(t *testing.T) {
		mock, err := pgxmock.NewConn()
		require.NoError(t, err)
		defer mock.Close(context.Background())

		expectExtension(mock, bootstrap.ExtensionUUIDOSSP, true)
		expectExtension(mock, bootstrap.ExtensionPgTrgm, true)
		expectEnum(mock, bootstrap.EnumUserStatus, bootstrap.UserStatusLabels)
		expectEnum(mock, bootstrap.EnumTenantStatus, bootstrap.TenantStatusLabels)
		expectSchema(mock, bootstrap.TenantSchema, true)
		expectSearchPath(mock, "tenant_db", `public, "tenant_schema"`)

		report, err := Run(context.Background(), mock, "tenant_db")

		require.NoError(t, err)
		assert.True(t, report.OK())
	})
}

func TestNormalizeSearchPath(t *testing.T) {
	assert.Equal(t, "public,tenant_schema", normalizeSearchPath("public, tenant_schema"))
	assert.Equal(t, "public,tenant_schema", normalizeSearchPath(`"public","tenant_schema"`))
	assert.Equal(t, "public,tenant_schema", normalizeSearchPath("public,tenant_schema"))
}
