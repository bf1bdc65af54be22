// Package migrations embeds the SQL schema applied by test containers and
// by operators bootstrapping a database.
package migrations

import "embed"

// FS holds the numbered *.sql files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
