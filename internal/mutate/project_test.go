package mutate_test

import (
	"testing"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/alexanderramin/arbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProject(t *testing.T) {
	m := testutil.NewTestMutator()

	res, err := m.NewProject("  Launch ")
	require.NoError(t, err)
	p := res.Project
	assert.Equal(t, "Launch", p.Name)
	assert.Equal(t, res.CreatedID, p.ID)
	root, ok := p.Root()
	require.True(t, ok)
	assert.Equal(t, "Launch", root.Title)
	assert.Equal(t, domain.StatusActive, root.Status)
	assert.Empty(t, root.ParentIDs)
	assert.Equal(t, []domain.Change{
		domain.Upsert(domain.KindProject, p.ID, p.ID),
		domain.Upsert(domain.KindBranch, root.ID, p.ID),
	}, res.Changes)

	_, err = m.NewProject(" ")
	assert.ErrorIs(t, err, mutate.ErrEmptyTitle)
}

func TestRenameProject(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.RenameProject(p, "Roadmap")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", res.Project.Name)
	assert.Equal(t, 2, res.Project.Version)
	assert.Equal(t, "Tracker", p.Name)

	same, err := m.RenameProject(res.Project, "Roadmap")
	require.NoError(t, err)
	assert.False(t, same.Changed())
}

func TestSetRoot(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch("F", "Floating", nil),
	)

	_, err := m.SetRoot(p, "B1")
	assert.ErrorIs(t, err, mutate.ErrInvalidRoot)

	res, err := m.SetRoot(p, "F")
	require.NoError(t, err)
	assert.Equal(t, "F", res.Project.RootBranchID)

	_, err = m.SetRoot(p, "ghost")
	assert.ErrorIs(t, err, mutate.ErrNotFound)
}

func TestCreateRoot(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()
	p.RootBranchID = "missing"

	res, err := m.CreateRoot(p)
	require.NoError(t, err)
	root, ok := res.Project.Root()
	require.True(t, ok)
	assert.Equal(t, res.CreatedID, root.ID)
	assert.Equal(t, "Tracker", root.Title)
	assert.Contains(t, res.Changes, domain.Upsert(domain.KindBranch, root.ID, p.ID))
	assert.Contains(t, res.Changes, domain.Upsert(domain.KindProject, p.ID, p.ID))
}

func TestRepairLinks_CompletesAndPrunes(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}),
		testutil.WithBranch("B", "B", []string{testutil.RootID}),
	)
	// one-sided child link, dangling parent, self reference, root listed as a child
	p.Branches["A"].ChildrenIDs = []string{"B", "A", testutil.RootID}
	p.Branches["B"].ParentIDs = []string{testutil.RootID, "ghost"}
	p.Branches[testutil.RootID].ParentIDs = []string{"A"}

	res, err := m.RepairLinks(p)
	require.NoError(t, err)
	next := res.Project
	assert.Empty(t, testutil.AssertSymmetric(next))
	assert.Empty(t, next.Branches[testutil.RootID].ParentIDs)
	assert.Equal(t, []string{"B"}, next.Branches["A"].ChildrenIDs)
	assert.ElementsMatch(t, []string{testutil.RootID, "A"}, next.Branches["B"].ParentIDs)

	again, err := m.RepairLinks(next)
	require.NoError(t, err)
	assert.False(t, again.Changed(), "repair is idempotent")
}

func TestIsDescendantAndReachable(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}),
		testutil.WithBranch("B", "B", []string{"A"}),
		testutil.WithBranch("O", "Orphan", nil),
	)
	// cycle below A must not hang the walk
	p.Branches["B"].ChildrenIDs = []string{"A", "ghost"}

	assert.True(t, mutate.IsDescendant(p, testutil.RootID, "B"))
	assert.False(t, mutate.IsDescendant(p, "A", "O"))
	assert.False(t, mutate.IsDescendant(p, "ghost", "A"))

	reach := mutate.Reachable(p)
	assert.True(t, reach["B"])
	assert.False(t, reach["O"])
	assert.False(t, reach["ghost"])
}
