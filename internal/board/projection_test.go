package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func TestProjectToLanes_PartitionsEveryTaskOnce(t *testing.T) {
	tasks := sampleTasks()
	lanes, err := ProjectToLanes(tasks)
	require.NoError(t, err)

	require.Len(t, lanes, 4)
	assert.Equal(t, len(tasks), lanes.Len())

	seen := map[int64]int{}
	for status, ts := range lanes {
		for _, task := range ts {
			assert.Equal(t, status, task.Status)
			seen[task.ID]++
		}
	}
	for _, task := range tasks {
		assert.Equal(t, 1, seen[task.ID], "task %d", task.ID)
	}
}

func TestProjectToLanes_ToDoSortedByPriorityStable(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Status: models.StatusToDo, Priority: models.PriorityLow},
		{ID: 2, Status: models.StatusToDo, Priority: models.PriorityHigh},
		{ID: 3, Status: models.StatusToDo, Priority: models.PriorityMedium},
		{ID: 4, Status: models.StatusToDo, Priority: models.PriorityHigh},
		{ID: 5, Status: models.StatusToDo, Priority: models.PriorityLow},
		{ID: 6, Status: models.StatusToDo, Priority: models.PriorityMedium},
	}
	lanes, err := ProjectToLanes(tasks)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 4, 3, 6, 1, 5}, laneIDs(lanes, models.StatusToDo))

	todo := lanes[models.StatusToDo]
	for i := 1; i < len(todo); i++ {
		assert.GreaterOrEqual(t, models.PriorityRank(todo[i-1].Priority), models.PriorityRank(todo[i].Priority))
	}
}

func TestProjectToLanes_OtherLanesKeepSourceOrder(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Status: models.StatusInProgress, Priority: models.PriorityLow},
		{ID: 2, Status: models.StatusInProgress, Priority: models.PriorityHigh},
		{ID: 3, Status: models.StatusApproval, Priority: models.PriorityLow},
		{ID: 4, Status: models.StatusApproval, Priority: models.PriorityHigh},
		{ID: 5, Status: models.StatusCompleted, Priority: models.PriorityLow},
		{ID: 6, Status: models.StatusCompleted, Priority: models.PriorityHigh},
	}
	lanes, err := ProjectToLanes(tasks)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, laneIDs(lanes, models.StatusInProgress))
	assert.Equal(t, []int64{3, 4}, laneIDs(lanes, models.StatusApproval))
	assert.Equal(t, []int64{5, 6}, laneIDs(lanes, models.StatusCompleted))
	assert.Empty(t, lanes[models.StatusToDo])
}

func TestProjectToLanes_UnknownStatus(t *testing.T) {
	_, err := ProjectToLanes([]models.Task{
		{ID: 1, Status: models.StatusToDo},
		{ID: 2, Status: "done"},
	})
	var derr *models.DataIntegrityError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, int64(2), derr.TaskID)
}

func TestProjectToLanes_Idempotent(t *testing.T) {
	first, err := ProjectToLanes(sampleTasks())
	require.NoError(t, err)

	var flat []models.Task
	for _, s := range models.Statuses {
		flat = append(flat, first[s]...)
	}
	second, err := ProjectToLanes(flat)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProjectToLanes_Empty(t *testing.T) {
	lanes, err := ProjectToLanes(nil)
	require.NoError(t, err)
	for _, s := range models.Statuses {
		assert.NotNil(t, lanes[s])
		assert.Empty(t, lanes[s])
	}
}

func TestLanesFind(t *testing.T) {
	lanes, err := ProjectToLanes(sampleTasks())
	require.NoError(t, err)

	pos, ok := lanes.Find(43)
	require.True(t, ok)
	assert.Equal(t, Position{Lane: models.StatusToDo, Index: 1}, pos)

	_, ok = lanes.Find(999)
	assert.False(t, ok)
}
