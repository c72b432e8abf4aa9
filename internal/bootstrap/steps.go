package bootstrap

import (
	"fmt"
	"strings"
)

// Object names provisioned by the bootstrap sequence. The application's
// migration tooling assumes these exist before it runs.
const (
	ExtensionUUIDOSSP = "uuid-ossp"
	ExtensionPgTrgm   = "pg_trgm"
	EnumUserStatus    = "user_status"
	EnumTenantStatus  = "tenant_status"
	TenantSchema      = "tenant_schema"
)

// UserStatusLabels is the full label set of the user_status enum, in order.
var UserStatusLabels = []string{"active", "inactive", "suspended", "pending"}

// TenantStatusLabels is the full label set of the tenant_status enum, in order.
var TenantStatusLabels = []string{"active", "inactive", "suspended", "trial", "pending_setup"}

// StepKind identifies the category of catalog object a step provisions.
type StepKind string

const (
	KindExtension  StepKind = "extension"
	KindEnumType   StepKind = "enum_type"
	KindGrant      StepKind = "grant"
	KindSchema     StepKind = "schema"
	KindSearchPath StepKind = "search_path"
)

// Step is a single provisioning statement. Steps with TolerateDuplicate set
// treat a duplicate-object error from the server as "already provisioned";
// all other steps rely on the statement itself being idempotent.
type Step struct {
	Name              string
	Kind              StepKind
	SQL               string
	TolerateDuplicate bool

	// Set for enum type steps only, used to report label drift when an
	// existing type is tolerated.
	EnumName   string
	EnumLabels []string
}

// Steps returns the fixed, ordered provisioning manifest for the target
// database and administrative role. The object names are compiled in; only
// the database and role names come from configuration.
func Steps(database, adminRole string) []Step {
	return []Step{
		{
			Name: "create extension uuid-ossp",
			Kind: KindExtension,
			SQL:  fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", quoteIdentifier(ExtensionUUIDOSSP)),
		},
		{
			Name: "create extension pg_trgm",
			Kind: KindExtension,
			SQL:  fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", quoteIdentifier(ExtensionPgTrgm)),
		},
		{
			Name:              "create type user_status",
			Kind:              KindEnumType,
			SQL:               enumTypeSQL(EnumUserStatus, UserStatusLabels),
			TolerateDuplicate: true,
			EnumName:          EnumUserStatus,
			EnumLabels:        UserStatusLabels,
		},
		{
			Name:              "create type tenant_status",
			Kind:              KindEnumType,
			SQL:               enumTypeSQL(EnumTenantStatus, TenantStatusLabels),
			TolerateDuplicate: true,
			EnumName:          EnumTenantStatus,
			EnumLabels:        TenantStatusLabels,
		},
		{
			Name: "grant privileges",
			Kind: KindGrant,
			SQL: fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s",
				quoteIdentifier(database), quoteIdentifier(adminRole)),
		},
		{
			Name: "create schema tenant_schema",
			Kind: KindSchema,
			SQL:  fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(TenantSchema)),
		},
		{
			Name: "set search path",
			Kind: KindSearchPath,
			SQL: fmt.Sprintf("ALTER DATABASE %s SET search_path TO public, %s",
				quoteIdentifier(database), quoteIdentifier(TenantSchema)),
		},
	}
}

func enumTypeSQL(name string, labels []string) string {
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)",
		quoteIdentifier(name), strings.Join(quoteStringSlice(labels), ", "))
}

func quoteIdentifier(name string) string {
	// Replace any existing quotes with double quotes to escape them
	name = strings.ReplaceAll(name, `"`, `""`)
	return fmt.Sprintf(`"%s"`, name)
}

func quoteStringSlice(slice []string) []string {
	quoted := make([]string, len(slice))
	for i, s := range slice {
		quoted[i] = fmt.Sprintf("'%s'", strings.ReplaceAll(s, "'", "''"))
	}
	return quoted
}
