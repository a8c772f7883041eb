package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Factory builds the controller for the i-th agent of a swarm.
type Factory func(i int) (*Controller, error)

// RunSwarm runs n independent agents concurrently and returns their final
// states, indexed like the factory calls. Agents share nothing but ctx: one
// agent stopping, even for a spent budget, leaves the others running.
//
// The returned error is the first factory failure, if any. Agents whose
// controller could not be built have a zero AgentState.
func RunSwarm(ctx context.Context, n int, build Factory) ([]AgentState, error) {
	states := make([]AgentState, n)
	var g errgroup.Group

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			c, err := build(i)
			if err != nil {
				return fmt.Errorf("agent: build agent %d: %w", i, err)
			}
			states[i] = c.Run(ctx)
			return nil
		})
	}

	err := g.Wait()
	return states, err
}
