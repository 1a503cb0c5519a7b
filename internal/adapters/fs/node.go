package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/trowel/internal/core/ports"
)

const (
	// HasherNodeID is the unique identifier for the content hasher Graft node.
	HasherNodeID graft.ID = "adapter.fs.hasher"
	// ResolverNodeID is the unique identifier for the source resolver Graft node.
	ResolverNodeID graft.ID = "adapter.fs.resolver"
	// FilterNodeID is the unique identifier for the change filter Graft node.
	FilterNodeID graft.ID = "adapter.fs.filter"
	// WriterNodeID is the unique identifier for the output writer Graft node.
	WriterNodeID graft.ID = "adapter.fs.writer"
)

func init() {
	graft.Register(graft.Node[*Hasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Hasher, error) {
			return NewHasher(), nil
		},
	})

	graft.Register(graft.Node[ports.SourceResolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.SourceResolver, error) {
			return NewResolver(), nil
		},
	})

	graft.Register(graft.Node[ports.ChangeFilter]{
		ID:        FilterNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ChangeFilter, error) {
			return NewNewerFilter(), nil
		},
	})

	graft.Register(graft.Node[ports.OutputWriter]{
		ID:        WriterNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{HasherNodeID},
		Run: func(ctx context.Context) (ports.OutputWriter, error) {
			hasher, err := graft.Dep[*Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewWriter(hasher), nil
		},
	})
}
