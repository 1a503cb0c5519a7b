// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/trowel/internal/adapters/config"
	_ "go.trai.ch/trowel/internal/adapters/fs"
	_ "go.trai.ch/trowel/internal/adapters/logger"
	_ "go.trai.ch/trowel/internal/adapters/notify"
	_ "go.trai.ch/trowel/internal/adapters/shell"
	_ "go.trai.ch/trowel/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/trowel/internal/app"
)
