package task

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/sitetasks/domain"
)

// site builds a small project:
//
//	t1
//	├── t1-a
//	│   ├── t1-a-i
//	│   └── t1-a-ii
//	└── t1-b
//	t2
func site() []domain.Task {
	t1 := pendingTask("t1")
	a := childOf(t1, "t1-a")
	b := childOf(t1, "t1-b")
	ai := childOf(a, "t1-a-i")
	aii := childOf(a, "t1-a-ii")
	t2 := pendingTask("t2")
	t2.ProjectID = "proj-2"
	return []domain.Task{t1, a, ai, t2, b, aii}
}

func loaded(t *testing.T, tasks ...domain.Task) *UseCase {
	t.Helper()
	r := newRemote()
	r.seed(tasks...)
	uc := newStore(t, r, nil)
	uc.FetchAll(context.Background())
	return uc
}

func TestHierarchyQueries(t *testing.T) {
	uc := loaded(t, site()...)

	assert.Equal(t, []string{"t1", "t2"}, idsOf(uc.TopLevel("")))
	assert.Equal(t, []string{"t2"}, idsOf(uc.TopLevel("proj-2")))
	assert.Equal(t, []string{"t1-a", "t1-b"}, idsOf(uc.Children("t1")))
	assert.Empty(t, uc.Children(""))

	assert.Equal(t, []string{"t1-a", "t1-a-i", "t1-a-ii", "t1-b"}, idsOf(uc.Descendants("t1")))
	assert.Equal(t, 4, uc.CountDescendants("t1"))
	assert.Zero(t, uc.CountDescendants("t2"))
	assert.Zero(t, uc.CountDescendants("unknown"))

	assert.Equal(t, []string{"t1", "t1-a"}, idsOf(uc.Ancestors("t1-a-ii")))
	assert.Empty(t, uc.Ancestors("t1"))
	assert.Empty(t, uc.Ancestors("unknown"))
}

func TestAttributeQueries(t *testing.T) {
	tasks := site()
	tasks[0].Priority = domain.PriorityCritical
	tasks[0].DueDate = domain.Time(testNow.Add(-24 * time.Hour))
	tasks[1].DueDate = domain.Time(testNow.Add(24 * time.Hour))
	tasks[2].DueDate = domain.Time(testNow.Add(-time.Hour))
	tasks[2].CurrentStatus = domain.StatusCompleted
	tasks[3].AssignedTo = []string{"u2", "u5"}
	tasks[3].StarredByUsers = []string{"u5"}
	tasks[4].CurrentStatus = domain.StatusInProgress
	uc := loaded(t, tasks...)

	assert.Equal(t, []string{"t1"}, idsOf(uc.ByPriority(domain.PriorityCritical)))
	assert.Equal(t, []string{"t1-a-i"}, idsOf(uc.ByStatus(domain.StatusCompleted)))
	assert.Equal(t, []string{"t1-b"}, idsOf(uc.ByStatus(domain.StatusInProgress)))
	assert.Equal(t, []string{"t1"}, idsOf(uc.Overdue(testNow)))
	assert.Equal(t, []string{"t2"}, idsOf(uc.ByUser("u5")))
	assert.Len(t, uc.ByUser("u2"), 6)
	assert.Equal(t, []string{"t2"}, idsOf(uc.Starred("u5")))
	assert.Empty(t, uc.Starred("u2"))
}

func TestQueriesReturnCopies(t *testing.T) {
	uc := loaded(t, site()...)

	got := uc.ByUser("u2")
	got[0].Title = "mutated"
	got[0].AssignedTo[0] = "intruder"

	fresh, _ := uc.Task(got[0].ID)
	assert.NotEqual(t, "mutated", fresh.Title)
	assert.Equal(t, []string{"u2"}, fresh.AssignedTo)
}

func TestBuildTreeRoundTrip(t *testing.T) {
	tasks := site()
	roots := BuildTree(tasks)

	require.Len(t, roots, 2)
	assert.Equal(t, "t1", roots[0].Task.ID)
	assert.Equal(t, "t2", roots[1].Task.ID)
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, []string{"t1-a-i", "t1-a-ii"}, []string{
		roots[0].Children[0].Children[0].Task.ID,
		roots[0].Children[0].Children[1].Task.ID,
	})

	flat := Flatten(roots)
	assert.Equal(t, []string{"t1", "t1-a", "t1-a-i", "t1-a-ii", "t1-b", "t2"}, idsOf(flat))
	assert.ElementsMatch(t, idsOf(tasks), idsOf(flat))
}

func TestBuildTreePromotesOrphans(t *testing.T) {
	tasks := site()
	// drop t1-a; its children lose their parent
	tasks = append(tasks[:1], tasks[2:]...)

	roots := BuildTree(tasks)
	var rootIDs []string
	for _, n := range roots {
		rootIDs = append(rootIDs, n.Task.ID)
	}
	assert.Equal(t, []string{"t1", "t1-a-i", "t2", "t1-a-ii"}, rootIDs)
	assert.ElementsMatch(t, idsOf(tasks), idsOf(Flatten(roots)))
}

func TestBuildTreeSurvivesCycles(t *testing.T) {
	a := pendingTask("a")
	b := pendingTask("b")
	a.ParentTaskID = "b"
	b.ParentTaskID = "a"

	flat := Flatten(BuildTree([]domain.Task{a, b}))
	assert.ElementsMatch(t, []string{"a", "b"}, idsOf(flat))
}

// Random forests: flatten recovers every id once, and every ancestor of a
// task lists that task among its descendants.
func TestTreeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 25; round++ {
		var tasks []domain.Task
		n := 1 + rng.Intn(30)
		for i := 0; i < n; i++ {
			task := pendingTask(fmt.Sprintf("r%d-%d", round, i))
			if i > 0 && rng.Intn(4) > 0 {
				parent := tasks[rng.Intn(len(tasks))]
				task = childOf(parent, task.ID)
			}
			tasks = append(tasks, task)
		}
		rng.Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })

		flat := Flatten(BuildTree(tasks))
		require.Len(t, flat, len(tasks))
		assert.ElementsMatch(t, idsOf(tasks), idsOf(flat))

		uc := loaded(t, tasks...)
		for _, task := range tasks {
			for _, anc := range uc.Ancestors(task.ID) {
				assert.Contains(t, idsOf(uc.Descendants(anc.ID)), task.ID)
			}
			chain := uc.Ancestors(task.ID)
			assert.Len(t, chain, task.NestingLevel)
			if len(chain) > 0 {
				assert.Equal(t, task.RootTaskID, chain[0].ID)
				assert.Equal(t, task.ParentTaskID, chain[len(chain)-1].ID)
			}
		}
	}
}
