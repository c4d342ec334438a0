// Package migrations embeds the Postgres migration files for the bridge.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
