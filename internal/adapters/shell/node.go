package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/kiln/internal/core/ports"
)

const (
	// ExecutorNodeID is the unique identifier for the command executor Graft node.
	ExecutorNodeID graft.ID = "adapter.shell.executor"
	// SupervisorNodeID is the unique identifier for the backend supervisor Graft node.
	SupervisorNodeID graft.ID = "adapter.shell.supervisor"
)

func init() {
	graft.Register(graft.Node[*Executor]{
		ID:        ExecutorNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Executor, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewExecutor(log), nil
		},
	})

	graft.Register(graft.Node[ports.Supervisor]{
		ID:        SupervisorNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Supervisor, error) {
			return NewSupervisor(), nil
		},
	})
}
