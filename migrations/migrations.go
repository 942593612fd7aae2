// Package migrations embeds the SQL schema files for every database the
// module talks to.
package migrations

import "embed"

// FS holds the local device schema under "local" and the remote document
// table under "remote", each split by dialect subdirectory.
//
//go:embed local remote
var FS embed.FS

const (
	Local  = "local"
	Remote = "remote"
)
