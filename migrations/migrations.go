// Package migrations embeds the SQL schema so binaries and tests run the
// same migrations without a files-on-disk dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
