// Package migrations embute o schema aplicado pelo cmd/migrator.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
