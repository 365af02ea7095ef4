// Package migrations embeds the SQL migrations applied at startup.
package migrations

import "embed"

// FS holds the *.up.sql files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
