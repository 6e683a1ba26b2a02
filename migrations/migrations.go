// Package migrations embeds the SQL schema migrations so the worker binary
// can apply them at startup without external files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
