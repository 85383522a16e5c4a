package mutate_test

import (
	"fmt"
	"testing"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/alexanderramin/arbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoChildProject() *domain.Project {
	return testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch("B2", "Frontend", []string{testutil.RootID}),
	)
}

func TestAddBranch_CreatesPlannedChild(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.AddBranch(p, "B1")
	require.NoError(t, err)
	require.True(t, res.Changed())

	child := res.Project.Branches[res.CreatedID]
	require.NotNil(t, child)
	assert.Equal(t, domain.StatusPlanned, child.Status)
	assert.Equal(t, mutate.DefaultBranchTitle, child.Title)
	assert.Equal(t, []string{"B1"}, child.ParentIDs)
	assert.Empty(t, child.Tasks)
	assert.Contains(t, res.Project.Branches["B1"].ChildrenIDs, child.ID)

	assert.NotContains(t, p.Branches, res.CreatedID, "input snapshot must not change")
	assert.Empty(t, p.Branches["B1"].ChildrenIDs)
	assert.Equal(t, 2, res.Project.Branches["B1"].Version)
	assert.Empty(t, testutil.AssertSymmetric(res.Project))
}

func TestAddBranch_MissingParentIsNoop(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.AddBranch(p, "nope")
	require.ErrorIs(t, err, mutate.ErrNotFound)
	assert.Same(t, p, res.Project)
	assert.Empty(t, res.Changes)
}

func TestAddBranch_SprintNumberingIsMonotonic(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("S", "Sprint", []string{testutil.RootID}, testutil.AsSprint(0)),
	)

	var titles []string
	for i := 0; i < 3; i++ {
		res, err := m.AddBranch(p, "S")
		require.NoError(t, err)
		p = res.Project
		titles = append(titles, p.Branches[res.CreatedID].Title)

		if i == 1 {
			res, err = m.DeleteBranch(p, res.CreatedID)
			require.NoError(t, err)
			p = res.Project
		}
	}
	res, err := m.AddBranch(p, "S")
	require.NoError(t, err)
	titles = append(titles, res.Project.Branches[res.CreatedID].Title)

	year := testutil.Epoch.Format("06")
	for i, title := range titles {
		assert.Equal(t, fmt.Sprintf("Sprint %s-%02d", year, i+1), title)
	}
	assert.Equal(t, 4, res.Project.Branches["S"].SprintCounter)
}

func TestUpdateBranch(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.UpdateBranch(p, "B1", domain.BranchPatch{
		Title:  domain.Ptr("API"),
		Status: domain.Ptr(domain.BranchStatus("WHATEVER")),
	})
	require.NoError(t, err)
	b := res.Project.Branches["B1"]
	assert.Equal(t, "API", b.Title)
	assert.Equal(t, domain.BranchStatus("WHATEVER"), b.Status, "values are not validated")
	assert.Equal(t, testutil.Epoch.Add(1e9), b.UpdatedAt)
	assert.Equal(t, []domain.Change{domain.Upsert(domain.KindBranch, "B1", p.ID)}, res.Changes)

	res, err = m.UpdateBranch(res.Project, "B1", domain.BranchPatch{Title: domain.Ptr("API")})
	require.NoError(t, err)
	assert.False(t, res.Changed())

	_, err = m.UpdateBranch(p, "ghost", domain.BranchPatch{})
	assert.ErrorIs(t, err, mutate.ErrNotFound)
}

func TestDeleteBranch_RootIsRejected(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.DeleteBranch(p, testutil.RootID)
	require.ErrorIs(t, err, mutate.ErrRootBranch)
	assert.Same(t, p, res.Project)
	assert.Len(t, res.Project.Branches, 3)
}

func TestDeleteBranch_UnlinksWithoutCascade(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}, testutil.WithTasks("a", "b")),
		testutil.WithBranch("B2", "Frontend", []string{testutil.RootID}),
		testutil.WithBranch("C1", "Only child", []string{"B1"}),
		testutil.WithBranch("C2", "Shared", []string{"B1", "B2"}),
	)

	res, err := m.DeleteBranch(p, "B1")
	require.NoError(t, err)
	next := res.Project

	assert.NotContains(t, next.Branches, "B1")
	assert.NotContains(t, next.Branches[testutil.RootID].ChildrenIDs, "B1")
	require.Contains(t, next.Branches, "C1")
	assert.Empty(t, next.Branches["C1"].ParentIDs)
	assert.Equal(t, []string{"B2"}, next.Branches["C2"].ParentIDs)
	assert.Empty(t, testutil.AssertSymmetric(next))

	last := res.Changes[len(res.Changes)-1]
	assert.Equal(t, domain.Delete(domain.KindBranch, "B1", p.ID), last)
	assert.Contains(t, res.Changes, domain.Upsert(domain.KindBranch, testutil.RootID, p.ID))
	assert.Contains(t, res.Changes, domain.Upsert(domain.KindBranch, "C1", p.ID))
	assert.Contains(t, res.Changes, domain.Delete(domain.KindTask, "B1-t1", "B1"))
	assert.Contains(t, res.Changes, domain.Delete(domain.KindTask, "B1-t2", "B1"))
}

func TestToggleBranchArchive(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.ToggleBranchArchive(p, "B2")
	require.NoError(t, err)
	assert.True(t, res.Project.Branches["B2"].Archived)
	assert.Contains(t, res.Project.Branches, "B2", "archived branches stay in the graph")

	res, err = m.ToggleBranchArchive(res.Project, "B2")
	require.NoError(t, err)
	assert.False(t, res.Project.Branches["B2"].Archived)
}

func TestLinkBranch(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	res, err := m.LinkBranch(p, "B2", "B1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testutil.RootID, "B1"}, res.Project.Branches["B2"].ParentIDs)
	assert.Contains(t, res.Project.Branches["B1"].ChildrenIDs, "B2")
	assert.Empty(t, testutil.AssertSymmetric(res.Project))

	again, err := m.LinkBranch(res.Project, "B2", "B1")
	require.NoError(t, err)
	assert.False(t, again.Changed(), "linking an existing pair is a no-op")

	self, err := m.LinkBranch(p, "B1", "B1")
	require.NoError(t, err)
	assert.False(t, self.Changed())
}

func TestLinkBranch_RejectsCycles(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}),
		testutil.WithBranch("B", "B", []string{"A"}),
		testutil.WithBranch("C", "C", []string{"B"}),
	)

	res, err := m.LinkBranch(p, "A", "C")
	require.ErrorIs(t, err, mutate.ErrCycle)
	assert.Same(t, p, res.Project)

	_, err = m.LinkBranch(p, testutil.RootID, "C")
	assert.ErrorIs(t, err, mutate.ErrRootBranch)
}

func TestUnlinkBranch(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}),
		testutil.WithBranch("B", "B", []string{testutil.RootID, "A"}),
	)

	res, err := m.UnlinkBranch(p, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.RootID}, res.Project.Branches["B"].ParentIDs)
	assert.Empty(t, res.Project.Branches["A"].ChildrenIDs)

	again, err := m.UnlinkBranch(res.Project, "B", "A")
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestMoveBranch(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}),
		testutil.WithBranch("B", "B", []string{testutil.RootID}),
		testutil.WithBranch("C", "C", []string{testutil.RootID}),
	)

	res, err := m.MoveBranch(p, "B", mutate.Prev)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, res.Project.Branches[testutil.RootID].ChildrenIDs)

	res, err = m.MoveBranch(res.Project, "B", mutate.Prev)
	require.NoError(t, err)
	assert.False(t, res.Changed(), "already first")

	res, err = m.MoveBranch(p, "C", mutate.Next)
	require.NoError(t, err)
	assert.False(t, res.Changed(), "already last")

	res, err = m.MoveBranch(p, testutil.RootID, mutate.Next)
	require.NoError(t, err)
	assert.False(t, res.Changed(), "root has no parent")
}

func TestParseDirection(t *testing.T) {
	for _, s := range []string{"prev", "LEFT", " up "} {
		d, err := mutate.ParseDirection(s)
		require.NoError(t, err)
		assert.Equal(t, mutate.Prev, d)
	}
	for _, s := range []string{"next", "right", "down"} {
		d, err := mutate.ParseDirection(s)
		require.NoError(t, err)
		assert.Equal(t, mutate.Next, d)
	}
	_, err := mutate.ParseDirection("sideways")
	assert.Error(t, err)
}

func TestSymmetryHoldsAcrossOperationSequence(t *testing.T) {
	m := testutil.NewTestMutator()
	p := twoChildProject()

	steps := []func(*domain.Project) (mutate.Result, error){
		func(p *domain.Project) (mutate.Result, error) { return m.AddBranch(p, "B1") },
		func(p *domain.Project) (mutate.Result, error) { return m.AddBranch(p, "B2") },
		func(p *domain.Project) (mutate.Result, error) { return m.LinkBranch(p, "B2", "B1") },
		func(p *domain.Project) (mutate.Result, error) { return m.LinkBranch(p, "id-1", "B2") },
		func(p *domain.Project) (mutate.Result, error) { return m.UnlinkBranch(p, "B2", testutil.RootID) },
		func(p *domain.Project) (mutate.Result, error) { return m.DeleteBranch(p, "B1") },
		func(p *domain.Project) (mutate.Result, error) { return m.MoveBranch(p, "id-2", mutate.Prev) },
	}
	for i, step := range steps {
		res, err := step(p)
		require.NoError(t, err, "step %d", i)
		p = res.Project
		require.Empty(t, testutil.AssertSymmetric(p), "step %d", i)
	}
}
