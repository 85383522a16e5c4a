package integrity_test

import (
	"testing"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/integrity"
	"github.com/alexanderramin/arbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHealth_HealthyProject(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch("C1", "Service", []string{"B1"}),
	)

	report := integrity.CheckHealth(p)
	assert.True(t, report.Healthy())
	assert.Empty(t, report.OrphanedBranches)
}

func TestCheckHealth_OrphanAfterSeveredLink(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch("C1", "Service", []string{"B1"}, testutil.WithTasks("a", "b")),
	)

	res, err := m.UnlinkBranch(p, "C1", "B1")
	require.NoError(t, err)

	report := integrity.CheckHealth(res.Project)
	require.Len(t, report.OrphanedBranches, 1)
	assert.Equal(t, integrity.OrphanInfo{
		ID:        "C1",
		Title:     "Service",
		Status:    domain.StatusPlanned,
		TaskCount: 2,
	}, report.OrphanedBranches[0])
	assert.Empty(t, report.DanglingRefs)
	assert.False(t, report.MissingRootNode)
}

func TestCheckHealth_DeleteLeavesOnlyChildOrphaned(t *testing.T) {
	m := testutil.NewTestMutator()
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch("B2", "Frontend", []string{testutil.RootID}),
		testutil.WithBranch("C1", "Only child", []string{"B1"}),
		testutil.WithBranch("C2", "Shared", []string{"B1", "B2"}),
	)

	res, err := m.DeleteBranch(p, "B1")
	require.NoError(t, err)

	report := integrity.CheckHealth(res.Project)
	assert.Equal(t, []string{"C1"}, report.OrphanIDs())
	assert.Empty(t, report.DanglingRefs)
}

func TestCheckHealth_MissingRoot(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
	)
	p.RootBranchID = "gone"

	report := integrity.CheckHealth(p)
	assert.True(t, report.MissingRootNode)
	assert.ElementsMatch(t, []string{testutil.RootID, "B1"}, report.OrphanIDs())
	assert.Equal(t, []string{testutil.RootID}, report.LegacyRootIDs, "the old root still heads a subtree")
}

func TestCheckHealth_LegacyRoots(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch(integrity.LegacyRootID, "Old root", nil),
		testutil.WithBranch("X", "Old subtree head", nil),
		testutil.WithBranch("Y", "Old leaf", []string{"X"}),
		testutil.WithBranch("L", "Lone", nil),
	)

	report := integrity.CheckHealth(p)
	assert.True(t, report.LegacyRootFound)
	assert.Equal(t, []string{integrity.LegacyRootID, "X"}, report.LegacyRootIDs)
	assert.Equal(t, []string{integrity.LegacyRootID, "X", "Y", "L"}, report.OrphanIDs(), "orphans follow creation order")
}

func TestCheckHealth_DanglingAndOneSidedRefs(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
		testutil.WithBranch("B2", "Frontend", []string{testutil.RootID}),
	)
	p.Branches["B1"].ChildrenIDs = []string{"ghost", "B2"}

	report := integrity.CheckHealth(p)
	assert.Equal(t, []integrity.DanglingRef{
		{BranchID: "B1", Field: integrity.FieldChildren, RefID: "ghost", Missing: true},
		{BranchID: "B1", Field: integrity.FieldChildren, RefID: "B2"},
	}, report.DanglingRefs)
	assert.False(t, report.Healthy())
}

func TestCheckHealth_TerminatesOnCycles(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("A", "A", []string{testutil.RootID}),
		testutil.WithBranch("B", "B", []string{"A"}),
	)
	// corrupt: B -> A -> B, and B also lists the root as a child
	p.Branches["B"].ChildrenIDs = []string{"A", testutil.RootID}
	p.Branches["A"].ParentIDs = append(p.Branches["A"].ParentIDs, "B")
	p.Branches[testutil.RootID].ParentIDs = []string{"B"}

	report := integrity.CheckHealth(p)
	assert.Empty(t, report.OrphanedBranches)
}

func TestCheckHealth_IsReadOnly(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("B1", "Backend", []string{testutil.RootID}),
	)
	p.Branches["B1"].ChildrenIDs = []string{"ghost"}
	before, err := domain.EncodeSnapshot(p)
	require.NoError(t, err)

	_ = integrity.CheckHealth(p)

	after, err := domain.EncodeSnapshot(p)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestCheckHealth_Deterministic(t *testing.T) {
	p := testutil.NewTestProject("Tracker",
		testutil.WithBranch("O1", "One", nil),
		testutil.WithBranch("O2", "Two", nil),
		testutil.WithBranch("O3", "Three", nil),
	)
	first := integrity.CheckHealth(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, integrity.CheckHealth(p))
	}
}
