// Package migrations ships the numbered golang-migrate SQL files inside the
// binary so the server can migrate itself on start.
package migrations

import "embed"

// FS holds every NNNN_name.up.sql and NNNN_name.down.sql pair.
//
//go:embed *.sql
var FS embed.FS
