// Package migrations embeds the SQL migration files. Shared tables live under
// public/, tenant-partition tables under tenant/; the tenant set is applied
// once per school schema.
package migrations

import "embed"

//go:embed public/*.sql
var Public embed.FS

//go:embed tenant/*.sql
var Tenant embed.FS
