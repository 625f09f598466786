// Package migrations contains the embedded SQL schema applied at startup.
// Files run once each, in lexical order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
