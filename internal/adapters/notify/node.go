package notify

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trowel/internal/adapters/logger"
	"go.trai.ch/trowel/internal/core/ports"
)

// NodeID is the unique identifier for the notifier Graft node.
const NodeID graft.ID = "adapter.notifier"

func init() {
	graft.Register(graft.Node[ports.Notifier]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Notifier, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(log), nil
		},
	})
}
