package migrations

import "embed"

// Files embeds the SQL schema migrations in apply order.
//
//go:embed *.sql
var Files embed.FS
