package orchestrator

import (
	"github.com/jbplatform/relay/pkg/models"
)

// taskQueues holds the four priority-ordered FIFO queues. It is not
// internally synchronized: the engine's mutex guards all access, keeping
// queue state single-writer.
type taskQueues struct {
	queues map[models.Priority][]*models.Task
}

func newTaskQueues() *taskQueues {
	q := &taskQueues{queues: make(map[models.Priority][]*models.Task, len(models.Priorities))}
	for _, p := range models.Priorities {
		q.queues[p] = nil
	}
	return q
}

// push appends the task to the tail of its priority's queue. FIFO within a
// tier; no reordering, no priority inheritance.
func (q *taskQueues) push(task *models.Task) {
	q.queues[task.Priority] = append(q.queues[task.Priority], task)
}

// head returns the first task of the given tier without removing it, or nil.
func (q *taskQueues) head(p models.Priority) *models.Task {
	if len(q.queues[p]) == 0 {
		return nil
	}
	return q.queues[p][0]
}

// pop removes and returns the first task of the given tier, or nil.
func (q *taskQueues) pop(p models.Priority) *models.Task {
	if len(q.queues[p]) == 0 {
		return nil
	}
	task := q.queues[p][0]
	q.queues[p] = q.queues[p][1:]
	return task
}

// find returns the queued task with the given id, searching tiers in
// dispatch order, or nil.
func (q *taskQueues) find(id string) *models.Task {
	for _, p := range models.Priorities {
		for _, task := range q.queues[p] {
			if task.ID == id {
				return task
			}
		}
	}
	return nil
}

// counts returns the number of queued tasks per tier.
func (q *taskQueues) counts() map[models.Priority]int {
	counts := make(map[models.Priority]int, len(models.Priorities))
	for _, p := range models.Priorities {
		counts[p] = len(q.queues[p])
	}
	return counts
}

// total returns the number of queued tasks across all tiers.
func (q *taskQueues) total() int {
	n := 0
	for _, p := range models.Priorities {
		n += len(q.queues[p])
	}
	return n
}
