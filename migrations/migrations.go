// package migrations embeds the goose SQL migrations for the users schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
