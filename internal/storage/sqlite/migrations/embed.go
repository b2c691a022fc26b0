package migrations

import "embed"

// FS holds the run index schema migrations.
//
//go:embed *.sql
var FS embed.FS
