package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject() *Project {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Project{
		ID:           "p1",
		Name:         "Sample",
		RootBranchID: "r",
		Branches: map[string]*Branch{
			"r": {ID: "r", Title: "Root", ChildrenIDs: []string{"b"}, CreatedAt: t0},
			"b": {ID: "b", Title: "B", ParentIDs: []string{"r"}, CreatedAt: t0.Add(time.Minute),
				Tasks: []Task{{ID: "t1", Title: "one"}}},
		},
		People: []Person{{ID: "u1", Name: "Ada"}},
	}
}

func TestClone_DoesNotShareMapOrPeople(t *testing.T) {
	p := sampleProject()
	cp := p.Clone()

	cp.Branches["x"] = &Branch{ID: "x"}
	cp.People[0].Name = "Grace"

	assert.Len(t, p.Branches, 2)
	assert.Equal(t, "Ada", p.People[0].Name)
	assert.Same(t, p.Branches["b"], cp.Branches["b"], "untouched branches are shared")
}

func TestBranchClone_CopiesSlices(t *testing.T) {
	p := sampleProject()
	b := p.Branches["b"].Clone()
	b.Tasks[0].Title = "changed"
	b.ParentIDs = append(b.ParentIDs, "zz")

	assert.Equal(t, "one", p.Branches["b"].Tasks[0].Title)
	assert.Equal(t, []string{"r"}, p.Branches["b"].ParentIDs)
}

func TestSortedBranchIDs_ByCreationThenID(t *testing.T) {
	p := sampleProject()
	p.Branches["a"] = &Branch{ID: "a", CreatedAt: p.Branches["b"].CreatedAt}
	assert.Equal(t, []string{"r", "a", "b"}, p.SortedBranchIDs())
}

func TestFindTask(t *testing.T) {
	p := sampleProject()
	b, idx, ok := p.FindTask("t1")
	require.True(t, ok)
	assert.Equal(t, "b", b.ID)
	assert.Equal(t, 0, idx)

	_, _, ok = p.FindTask("missing")
	assert.False(t, ok)
}

func TestPersonByID_MissingReadsAsUnassigned(t *testing.T) {
	p := sampleProject()
	_, ok := p.PersonByID("ghost")
	assert.False(t, ok)
	_, ok = p.PersonByID("")
	assert.False(t, ok)
	person, ok := p.PersonByID("u1")
	require.True(t, ok)
	assert.Equal(t, "Ada", person.Name)
}

func TestSnapshot_EncodeDecode(t *testing.T) {
	p := sampleProject()
	data, err := EncodeSnapshot(p)
	require.NoError(t, err)

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, p.RootBranchID, got.RootBranchID)
	require.Contains(t, got.Branches, "b")
	assert.Equal(t, []string{"r"}, got.Branches["b"].ParentIDs)
	assert.Equal(t, "one", got.Branches["b"].Tasks[0].Title)
}

func TestDecodeSnapshot_Invalid(t *testing.T) {
	_, err := DecodeSnapshot([]byte("{"))
	require.Error(t, err)
}

func TestDeriveInitials(t *testing.T) {
	cases := map[string]string{
		"ada lovelace": "AD",
		"x":            "X",
		"  émile ":     "ÉM",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, DeriveInitials(in), "input %q", in)
	}
}

func TestBranchPatch_Apply(t *testing.T) {
	b := &Branch{Title: "old", Status: StatusPlanned}
	changed := BranchPatch{Title: Ptr("new"), Status: Ptr(StatusActive)}.Apply(b)
	assert.True(t, changed)
	assert.Equal(t, "new", b.Title)
	assert.Equal(t, StatusActive, b.Status)

	assert.False(t, BranchPatch{Title: Ptr("new")}.Apply(b), "same value is not a change")
}

func TestTaskPatch_ApplyReportsCompletion(t *testing.T) {
	task := &Task{Title: "a"}
	changed, completion := TaskPatch{Completed: Ptr(true)}.Apply(task)
	assert.True(t, changed)
	assert.True(t, completion)
	assert.False(t, task.Completed, "completion is applied by the caller via SetCompleted")

	now := time.Now().UTC()
	task.SetCompleted(true, now)
	require.NotNil(t, task.CompletedAt)
	task.SetCompleted(false, now)
	assert.Nil(t, task.CompletedAt)
}

func TestEntityKindTable(t *testing.T) {
	assert.Equal(t, TableBranches, KindBranch.Table())
	assert.Equal(t, TableTasks, KindTask.Table())
	assert.Equal(t, TablePeople, KindPerson.Table())
	assert.Equal(t, TableProjects, KindProject.Table())
	assert.Equal(t, Table(""), EntityKind("bogus").Table())
}
