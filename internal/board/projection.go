package board

import "taskboard/internal/models"

// Lanes groups the board's tasks by status.
type Lanes map[models.Status][]models.Task

// Position is a slot on the board: a lane and an index inside it.
type Position struct {
	Lane  models.Status `json:"lane"`
	Index int           `json:"index"`
}

// ProjectToLanes partitions tasks into the four lanes.
//
// The to_do lane is ordered by descending priority, keeping source order for
// equal priorities. The other lanes keep source order: they are ordered by
// workflow recency as returned by the backend, not by priority.
func ProjectToLanes(tasks []models.Task) (Lanes, error) {
	lanes := make(Lanes, len(models.Statuses))
	for _, s := range models.Statuses {
		lanes[s] = []models.Task{}
	}

	// Buckets indexed by priority rank; a single pass keeps the sort stable and linear.
	var todo [4][]models.Task
	for _, t := range tasks {
		if !t.Status.IsValid() {
			return nil, &models.DataIntegrityError{TaskID: t.ID, Status: t.Status}
		}
		if t.Status == models.StatusToDo {
			r := models.PriorityRank(t.Priority)
			todo[r] = append(todo[r], t)
			continue
		}
		lanes[t.Status] = append(lanes[t.Status], t)
	}

	ordered := lanes[models.StatusToDo]
	for r := len(todo) - 1; r >= 0; r-- {
		ordered = append(ordered, todo[r]...)
	}
	lanes[models.StatusToDo] = ordered
	return lanes, nil
}

// Find returns the position of a task on the board.
func (l Lanes) Find(taskID int64) (Position, bool) {
	for _, s := range models.Statuses {
		for i, t := range l[s] {
			if t.ID == taskID {
				return Position{Lane: s, Index: i}, true
			}
		}
	}
	return Position{}, false
}

// Len counts the tasks across all lanes.
func (l Lanes) Len() int {
	n := 0
	for _, ts := range l {
		n += len(ts)
	}
	return n
}

func (l Lanes) clone() Lanes {
	out := make(Lanes, len(l))
	for s, ts := range l {
		out[s] = append([]models.Task(nil), ts...)
	}
	return out
}
