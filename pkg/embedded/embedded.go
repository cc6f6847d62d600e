// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains the dashboard (frontend/dist), served directly via HTTP.
// index.html loads its scripts from frontend/dist/assets.
//
//go:embed frontend/dist
var Files embed.FS
