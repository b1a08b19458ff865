// Package web embeds the built frontend so the binary ships self-contained.
package web

import "embed"

//go:embed all:dist
var DistFS embed.FS
