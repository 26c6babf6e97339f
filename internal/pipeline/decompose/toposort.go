// internal/pipeline/decompose/toposort.go
package decompose

import (
	"fmt"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/models"
)

type visitColor int

const (
	colorWhite visitColor = iota // not visited
	colorGray                    // on the current DFS path
	colorBlack                   // finished
)

// TopologicalOrder computes an execution order in which every task appears
// after all of its dependencies. A dependency cycle or a reference to a
// missing task fails the plan.
func TopologicalOrder(tasks []*models.Task) ([]string, error) {
	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	colors := make(map[string]visitColor, len(tasks))
	order := make([]string, 0, len(tasks))

	var visit func(id string) error
	visit = func(id string) error {
		switch colors[id] {
		case colorBlack:
			return nil
		case colorGray:
			return stderrors.NewPlanCycleDetectedError(id)
		}

		task, ok := byID[id]
		if !ok {
			return stderrors.NewDecompositionFailedError(fmt.Sprintf("dependency %q does not exist in plan", id))
		}

		colors[id] = colorGray
		for _, dep := range task.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		colors[id] = colorBlack
		order = append(order, id)
		return nil
	}

	for _, t := range tasks {
		if err := visit(t.ID); err != nil {
			return nil, err
		}
	}

	return order, nil
}
