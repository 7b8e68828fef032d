// Package assets embeds the level files shipped with the server binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed all:levels
var assetFS embed.FS

// DefaultLevel is loaded when no level is named on the command line.
const DefaultLevel = "arena"

// FS returns the embedded asset tree. Levels live under "levels/".
func FS() fs.FS {
	return assetFS
}
