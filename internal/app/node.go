package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trowel/internal/adapters/config"
	"go.trai.ch/trowel/internal/adapters/fs"
	"go.trai.ch/trowel/internal/adapters/logger"
	"go.trai.ch/trowel/internal/adapters/notify"
	"go.trai.ch/trowel/internal/adapters/shell"
	"go.trai.ch/trowel/internal/adapters/watcher"
	"go.trai.ch/trowel/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			shell.NodeID,
			logger.NodeID,
			fs.ResolverNodeID,
			fs.FilterNodeID,
			fs.WriterNodeID,
			notify.NodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := graft.Dep[ports.SourceResolver](ctx)
	if err != nil {
		return nil, err
	}

	filter, err := graft.Dep[ports.ChangeFilter](ctx)
	if err != nil {
		return nil, err
	}

	writer, err := graft.Dep[ports.OutputWriter](ctx)
	if err != nil {
		return nil, err
	}

	notifier, err := graft.Dep[ports.Notifier](ctx)
	if err != nil {
		return nil, err
	}

	watchers, err := graft.Dep[watcher.Factory](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, executor, log, resolver, filter, writer, notifier, WatcherFactory(watchers)), nil
}
