package migrations

import "embed"

// FS contains the embedded SQLite migrations for scene storage.
//
//go:embed *.sql
var FS embed.FS
