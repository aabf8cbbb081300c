// Package migrations holds the embedded schema migration files, named
// <version>_<name>.sql with strictly ascending numeric versions.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
