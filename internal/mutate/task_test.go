package mutate_test

import (
	"testing"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/alexanderramin/arbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTask_Scenario(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.AddTask(p, "B1", "Write spec")
	require.NoError(t, err)
	tasks := res.Project.Branches["B1"].Tasks
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write spec", tasks[0].Title)
	assert.False(t, tasks[0].Completed)
	assert.Empty(t, tasks[0].AssigneeID)
	assert.Equal(t, []domain.Change{domain.Upsert(domain.KindTask, res.CreatedID, "B1")}, res.Changes)
	assert.Empty(t, p.Branches["B1"].Tasks)
}

func TestAddTask_InheritsNearestResponsible(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithPerson("ada", "Ada"),
		testutil.WithPerson("bob", "Bob"),
		testutil.WithRootOptions(testutil.WithResponsible("ada")),
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithResponsible("bob")),
		testutil.WithBranch("C1", "Service", []string{"B1"}),
		testutil.WithBranch("B2", "Frontend", []string{testutil.RootID}),
	)

	cases := map[string]string{"B1": "bob", "C1": "bob", "B2": "ada", testutil.RootID: "ada"}
	for branch, want := range cases {
		res, err := m.AddTask(p, branch, "task")
		require.NoError(t, err)
		b := res.Project.Branches[branch]
		assert.Equal(t, want, b.Tasks[len(b.Tasks)-1].AssigneeID, "branch %s", branch)
	}
}

func TestAddTask_RejectsBlankTitle(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	for _, title := range []string{"", "   ", "\t\n"} {
		res, err := m.AddTask(p, "B1", title)
		require.ErrorIs(t, err, mutate.ErrEmptyTitle)
		assert.Same(t, p, res.Project)
	}
	_, err := m.AddTask(p, "ghost", "x")
	assert.ErrorIs(t, err, mutate.ErrNotFound)
}

func TestInheritedResponsible_SurvivesCycles(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", nil),
		testutil.WithBranch("B", "B", []string{"A"}),
	)
	p.Branches["A"].ParentIDs = []string{"B"}
	p.Branches["B"].ChildrenIDs = []string{"A"}

	assert.Equal(t, "", mutate.InheritedResponsible(p, "A"))
}

func TestUpdateAndToggleTask(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("one")),
	)

	res, err := m.UpdateTask(p, "B1", "B1-t1", domain.TaskPatch{Title: domain.Ptr("uno"), Pinned: domain.Ptr(true)})
	require.NoError(t, err)
	task := res.Project.Branches["B1"].Tasks[0]
	assert.Equal(t, "uno", task.Title)
	assert.True(t, task.Pinned)
	assert.Equal(t, 2, task.Version)

	res, err = m.ToggleTask(res.Project, "B1", "B1-t1")
	require.NoError(t, err)
	task = res.Project.Branches["B1"].Tasks[0]
	assert.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)

	res, err = m.ToggleTask(res.Project, "B1", "B1-t1")
	require.NoError(t, err)
	assert.Nil(t, res.Project.Branches["B1"].Tasks[0].CompletedAt)

	_, err = m.UpdateTask(p, "B1", "nope", domain.TaskPatch{})
	assert.ErrorIs(t, err, mutate.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("one", "two")),
	)

	res, err := m.DeleteTask(p, "B1", "B1-t1")
	require.NoError(t, err)
	require.Len(t, res.Project.Branches["B1"].Tasks, 1)
	assert.Equal(t, "B1-t2", res.Project.Branches["B1"].Tasks[0].ID)
	assert.Equal(t, 0, res.Project.Branches["B1"].Tasks[0].Position)
	assert.Equal(t, 2, res.Project.Branches["B1"].Tasks[0].Version)
	assert.Len(t, p.Branches["B1"].Tasks, 2)
	assert.Equal(t, []domain.Change{
		domain.Delete(domain.KindTask, "B1-t1", "B1"),
		domain.Upsert(domain.KindTask, "B1-t2", "B1"),
	}, res.Changes)
}

func TestDeleteTask_ThenAddKeepsPositionsUnique(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("a", "b", "c")),
	)

	res, err := m.DeleteTask(p, "B1", "B1-t1")
	require.NoError(t, err)
	res, err = m.AddTask(res.Project, "B1", "d")
	require.NoError(t, err)

	tasks := res.Project.Branches["B1"].Tasks
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, i, task.Position, task.Title)
	}
	assert.Equal(t, []string{"b", "c", "d"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestDeleteTask_LastTaskTouchesNothingElse(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("one", "two")),
	)

	res, err := m.DeleteTask(p, "B1", "B1-t2")
	require.NoError(t, err)
	assert.Equal(t, []domain.Change{domain.Delete(domain.KindTask, "B1-t2", "B1")}, res.Changes)
	assert.Equal(t, 1, res.Project.Branches["B1"].Tasks[0].Version)
}

func TestAddTask_RepairsCollidingPositions(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("a", "b")),
	)
	p.Branches["B1"].Tasks[0].Position = 1

	res, err := m.AddTask(p, "B1", "c")
	require.NoError(t, err)
	tasks := res.Project.Branches["B1"].Tasks
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, i, task.Position, task.Title)
	}
	assert.Equal(t, []domain.Change{
		domain.Upsert(domain.KindTask, "B1-t1", "B1"),
		domain.Upsert(domain.KindTask, res.CreatedID, "B1"),
	}, res.Changes)
}

func TestMoveTask(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("one", "two", "three")),
	)

	res, err := m.MoveTask(p, "B1", "B1-t3", mutate.Prev)
	require.NoError(t, err)
	tasks := res.Project.Branches["B1"].Tasks
	assert.Equal(t, []string{"one", "three", "two"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
	assert.Equal(t, 1, tasks[1].Position)
	assert.Equal(t, 2, tasks[2].Position)
	assert.Len(t, res.Changes, 2)

	res, err = m.MoveTask(p, "B1", "B1-t1", mutate.Prev)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	res, err = m.MoveTask(p, "B1", "B1-t3", mutate.Next)
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func TestMoveTaskToBranch_AndBack(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}, testutil.WithTasks("one", "two")),
		testutil.WithBranch("B", "B", []string{testutil.RootID}, testutil.WithTasks("other")),
	)
	original := p.Branches["A"].Tasks[0]

	res, err := m.MoveTaskToBranch(p, "A-t1", "A", "B")
	require.NoError(t, err)
	assert.Len(t, res.Project.Branches["A"].Tasks, 1)
	moved := res.Project.Branches["B"].Tasks
	require.Len(t, moved, 2)
	assert.Equal(t, "A-t1", moved[1].ID)
	assert.Equal(t, 1, moved[1].Position)
	assert.Equal(t, "A-t2", res.Project.Branches["A"].Tasks[0].ID)
	assert.Equal(t, 0, res.Project.Branches["A"].Tasks[0].Position)
	assert.Equal(t, []domain.Change{
		domain.Upsert(domain.KindTask, "A-t1", "B"),
		domain.Upsert(domain.KindTask, "A-t2", "A"),
	}, res.Changes)

	res, err = m.MoveTaskToBranch(res.Project, "A-t1", "B", "A")
	require.NoError(t, err)
	back := res.Project.Branches["A"].Tasks
	require.Len(t, back, 2)
	assert.Equal(t, original.ID, back[1].ID)
	assert.Equal(t, original.Title, back[1].Title)
	assert.Equal(t, original.Completed, back[1].Completed)
}

func TestMoveTaskToBranch_Missing(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}, testutil.WithTasks("one")),
		testutil.WithBranch("B", "B", []string{testutil.RootID}),
	)

	_, err := m.MoveTaskToBranch(p, "A-t1", "A", "ghost")
	assert.ErrorIs(t, err, mutate.ErrNotFound)
	_, err = m.MoveTaskToBranch(p, "B-t9", "A", "B")
	assert.ErrorIs(t, err, mutate.ErrNotFound)
}

func TestBulkMoveTasks_IgnoresUnknownIDs(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}, testutil.WithTasks("one", "two", "three")),
		testutil.WithBranch("B", "B", []string{testutil.RootID}),
	)

	res, err := m.BulkMoveTasks(p, []string{"A-t3", "ghost", "A-t1"}, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, "A-t2", res.Project.Branches["A"].Tasks[0].ID)
	moved := res.Project.Branches["B"].Tasks
	require.Len(t, moved, 2)
	assert.Equal(t, "A-t3", moved[0].ID)
	assert.Equal(t, "A-t1", moved[1].ID)
	assert.Equal(t, 0, res.Project.Branches["A"].Tasks[0].Position)
	assert.Len(t, res.Changes, 3)

	res, err = m.BulkMoveTasks(p, []string{"ghost", "phantom"}, "A", "B")
	require.NoError(t, err)
	assert.False(t, res.Changed())
}
