package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/integrity"
	"github.com/alexanderramin/arbor/internal/persist"
	"github.com/alexanderramin/arbor/internal/remote"
	"github.com/alexanderramin/arbor/internal/repository"
	"github.com/alexanderramin/arbor/internal/service"
	"github.com/alexanderramin/arbor/internal/syncer"
	"github.com/alexanderramin/arbor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app      *App
	ws       *service.Workspace
	projects *repository.SQLiteProjectRepo
	adapter  *remote.MemoryAdapter
	boots    int
	closes   int
}

// newTestEnv wires a workspace on a temp store. With withRemote an
// in-memory remote and engine are attached.
func newTestEnv(t *testing.T, withRemote bool) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	queue := repository.NewSQLiteSyncQueueRepo(database)
	env := &testEnv{projects: repository.NewSQLiteProjectRepo(database)}

	deps := service.Deps{
		Projects: env.projects,
		Settings: repository.NewSQLiteSettingsRepo(database),
		Queue:    queue,
		Mutator:  testutil.NewTestMutator(),
		OwnerID:  "alice",
	}
	var link persist.Link
	if withRemote {
		env.adapter = remote.NewMemoryAdapter()
		engine := syncer.NewEngine(queue, env.adapter, nil).WithOwner("alice")
		engine.Probe(context.Background())
		deps.Engine, deps.Remote, link = engine, env.adapter, engine
	}
	deps.Router = persist.NewRouter(testutil.NewTestUoW(database), link, persist.Options{
		RemoteEnabled: withRemote, CacheSnapshots: true, OwnerID: "alice",
	}, nil)
	env.ws = service.NewWorkspace(deps)

	env.app = &App{
		Boot: func(ctx context.Context, opts GlobalOptions) (*Session, error) {
			env.boots++
			return &Session{Workspace: env.ws, Close: func() error {
				env.closes++
				return nil
			}}, nil
		},
		Now: func() time.Time { return testutil.Epoch },
	}
	return env
}

// run executes one command line and returns its stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(e.app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "arbor %s", strings.Join(args, " "))
	return out
}

func (e *testEnv) active(t *testing.T) *domain.Project {
	t.Helper()
	p, ok := e.ws.Active()
	require.True(t, ok)
	return p
}

func TestProjectCreateAndShow(t *testing.T) {
	env := newTestEnv(t, false)

	out := env.mustRun(t, "project", "create", "Launch", "Plan")
	assert.Contains(t, out, "Created project Launch Plan")

	branchID := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "Design"))
	require.NotEmpty(t, branchID)
	env.mustRun(t, "task", "add", "Design", "Draft", "wireframes")

	out = env.mustRun(t, "project", "show", "--tasks")
	assert.Contains(t, out, "LAUNCH PLAN")
	assert.Contains(t, out, "Design")
	assert.Contains(t, out, "Draft wireframes")
	assert.Equal(t, 4, env.boots, "each command boots once")
	assert.Equal(t, env.boots, env.closes)
}

func TestProjectTabs(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "One")
	env.mustRun(t, "project", "create", "Two")

	out := env.mustRun(t, "project", "list", "--open")
	assert.Contains(t, out, "One")
	assert.Contains(t, out, "Two")

	env.mustRun(t, "project", "use", "one")
	assert.Equal(t, "One", env.active(t).Name)

	env.mustRun(t, "project", "close")
	assert.Equal(t, "Two", env.active(t).Name)

	env.mustRun(t, "project", "open", "One")
	assert.Equal(t, "One", env.active(t).Name)
	assert.Len(t, env.ws.OpenProjects(), 2)
}

func TestProjectRename_WithProjectFlag(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "One")
	env.mustRun(t, "project", "create", "Two")

	env.mustRun(t, "--project", "One", "project", "rename", "Uno")
	open := env.ws.OpenProjects()
	require.Len(t, open, 2)
	assert.Equal(t, "Uno", open[0].Name)
	assert.Equal(t, "Two", env.active(t).Name, "--project does not switch tabs")
}

func TestBranchUpdateAppliesOnlyGivenFlags(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "P")
	env.mustRun(t, "person", "add", "Ada", "Lovelace", "--email", "ada@example.com")
	id := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "Build"))
	env.mustRun(t, "branch", "update", "Build", "--description", "compile it")

	env.mustRun(t, "branch", "update", id, "--status", "active", "--responsible", "AD", "--due", "2026-04-01")
	b := env.active(t).Branches[id]
	assert.Equal(t, "Build", b.Title)
	assert.Equal(t, "compile it", b.Description)
	assert.Equal(t, domain.StatusActive, b.Status)
	assert.Equal(t, env.active(t).People[0].ID, b.ResponsibleID)
	assert.Equal(t, "2026-04-01", b.DueDate)

	_, err := env.run(t, "branch", "update", id, "--status", "done")
	require.Error(t, err)
	_, err = env.run(t, "branch", "update", id, "--due", "April")
	require.Error(t, err)
}

func TestBranchLinkMoveArchiveDelete(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "P")
	a := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "A"))
	b := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "B"))

	env.mustRun(t, "branch", "link", "B", "A")
	assert.Contains(t, env.active(t).Branches[b].ParentIDs, a)

	_, err := env.run(t, "branch", "link", "A", "B")
	require.Error(t, err, "cycle is rejected")

	env.mustRun(t, "branch", "unlink", "B", "A")
	assert.NotContains(t, env.active(t).Branches[b].ParentIDs, a)

	root := env.active(t).RootBranchID
	env.mustRun(t, "branch", "move", "B", "--dir", "up")
	assert.Equal(t, []string{b, a}, env.active(t).Branches[root].ChildrenIDs)

	env.mustRun(t, "branch", "archive", "A")
	assert.True(t, env.active(t).Branches[a].Archived)

	env.mustRun(t, "branch", "delete", "A")
	assert.NotContains(t, env.active(t).Branches, a)

	_, err = env.run(t, "branch", "delete", "root")
	require.Error(t, err)
}

func TestTaskCommands(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "P")
	src := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "Src"))
	dst := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "Dst"))

	t1 := strings.TrimSpace(env.mustRun(t, "task", "add", "Src", "first"))
	env.mustRun(t, "task", "add", "Src", "second")
	env.mustRun(t, "task", "add", "Src", "third")

	env.mustRun(t, "task", "toggle", "first")
	assert.True(t, env.active(t).Branches[src].Tasks[0].Completed)

	env.mustRun(t, "task", "update", t1, "--title", "renamed", "--pinned")
	assert.Equal(t, "renamed", env.active(t).Branches[src].Tasks[0].Title)

	env.mustRun(t, "task", "move", "renamed", "--dir", "next")
	assert.Equal(t, "second", env.active(t).Branches[src].Tasks[0].Title)

	env.mustRun(t, "task", "to", "third", "Dst")
	require.Len(t, env.active(t).Branches[dst].Tasks, 1)

	env.mustRun(t, "task", "bulk-move", "Dst", "second", "renamed")
	assert.Empty(t, env.active(t).Branches[src].Tasks)
	assert.Len(t, env.active(t).Branches[dst].Tasks, 3)

	_, err := env.run(t, "task", "bulk-move", "Src", "second", "nope")
	require.Error(t, err)

	env.mustRun(t, "task", "delete", "third")
	assert.Len(t, env.active(t).Branches[dst].Tasks, 2)
}

func TestTaskBulkFromFile(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "P")
	id := strings.TrimSpace(env.mustRun(t, "branch", "add", "root", "--title", "List"))
	env.mustRun(t, "task", "add", "List", "keep")
	env.mustRun(t, "task", "add", "List", "drop")
	keepID := env.active(t).Branches[id].Tasks[0].ID

	path := filepath.Join(t.TempDir(), "tasks.txt")
	require.NoError(t, os.WriteFile(path, []byte("new\n\nkeep\n"), 0o600))
	env.mustRun(t, "task", "bulk", "List", "--file", path)

	tasks := env.active(t).Branches[id].Tasks
	require.Len(t, tasks, 2)
	assert.Equal(t, "new", tasks[0].Title)
	assert.Equal(t, keepID, tasks[1].ID)
}

func TestPersonCommands(t *testing.T) {
	env := newTestEnv(t, false)
	env.mustRun(t, "project", "create", "P")
	env.mustRun(t, "person", "add", "Grace", "Hopper")

	out := env.mustRun(t, "person", "list")
	assert.Contains(t, out, "Grace Hopper")

	env.mustRun(t, "person", "update", "Grace Hopper", "--email", "grace@example.com")
	assert.Equal(t, "grace@example.com", env.active(t).People[0].Email)

	env.mustRun(t, "person", "remove", "GR")
	assert.Empty(t, env.active(t).People)
}

func TestHealthResolveFlow(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	broken := testutil.NewTestProject("Broken",
		testutil.WithBranch("O", "Orphan", nil),
		testutil.WithBranch("D", "Doomed", nil),
	)
	require.NoError(t, env.projects.Save(ctx, broken))
	env.mustRun(t, "project", "open", broken.ID)

	out := env.mustRun(t, "health", "check")
	assert.Contains(t, out, "Orphan")
	assert.Contains(t, out, "Doomed")

	_, err := env.run(t, "health", "resolve")
	require.Error(t, err)
	_, err = env.run(t, "health", "resolve", "-i")
	require.Error(t, err, "interactive mode needs a terminal")

	out = env.mustRun(t, "health", "resolve", "--restore", "O", "--delete", "D")
	assert.Contains(t, out, "healthy")
}

func TestSplitChoices(t *testing.T) {
	orphans := []integrity.OrphanInfo{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	r, d, s := orphanRestore, orphanDelete, orphanSkip
	restore, del := splitChoices(orphans, map[string]*string{"a": &d, "b": &r, "c": &s})
	assert.Equal(t, []string{"b"}, restore)
	assert.Equal(t, []string{"a"}, del)
}

func TestSyncCommands_LocalOnly(t *testing.T) {
	env := newTestEnv(t, false)
	out := env.mustRun(t, "sync", "status")
	assert.Contains(t, out, "local only")

	_, err := env.run(t, "sync", "drain")
	assert.ErrorIs(t, err, persist.ErrNoRemote)
}

func TestSyncCommands_WithRemote(t *testing.T) {
	env := newTestEnv(t, true)
	env.mustRun(t, "project", "create", "Remote")

	out := env.mustRun(t, "sync", "queue")
	assert.Contains(t, out, "projects")

	out = env.mustRun(t, "sync", "drain")
	assert.Contains(t, out, "pushed 2")

	out = env.mustRun(t, "sync", "queue", "--all")
	assert.Contains(t, out, "Queue is empty.")

	out = env.mustRun(t, "project", "list", "--remote")
	assert.Contains(t, out, "Remote")

	_, err := env.run(t, "sync", "retry", "abc")
	require.Error(t, err)
}

func TestProjectDeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t, true)
	env.mustRun(t, "project", "create", "Gone")
	id := env.active(t).ID

	_, err := env.run(t, "project", "delete", id)
	require.Error(t, err)

	env.mustRun(t, "project", "delete", id, "--yes")
	assert.Empty(t, env.ws.OpenProjects())
}

func TestProjectDownload(t *testing.T) {
	env := newTestEnv(t, true)
	source := testutil.NewTestProject("Shared",
		testutil.WithBranch("B1", "Design", []string{testutil.RootID}, testutil.WithTasks("sketch")),
	)
	env.adapter.Seed(remote.GraphRows(source, "alice")...)

	out := env.mustRun(t, "project", "download", source.ID)
	assert.Contains(t, out, "Downloaded Shared (2 branches, 1 task)")

	_, err := env.projects.GetByID(context.Background(), source.ID)
	require.NoError(t, err)
}

func TestMatch(t *testing.T) {
	cands := []candidate{
		{id: "abc123", names: []string{"Design"}},
		{id: "abd456", names: []string{"design"}},
		{id: "xyz789", names: []string{"Build"}},
	}

	c, err := match("branch", "xyz789", cands)
	require.NoError(t, err)
	assert.Equal(t, "xyz789", c.id)

	c, err = match("branch", "build", cands)
	require.NoError(t, err)
	assert.Equal(t, "xyz789", c.id)

	_, err = match("branch", "DESIGN", cands)
	assert.ErrorContains(t, err, "ambiguous")

	c, err = match("branch", "abc", cands)
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.id)

	_, err = match("branch", "ab", cands)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = match("branch", "nope", cands)
	assert.ErrorContains(t, err, "not found")

	_, err = match("branch", "", cands)
	assert.Error(t, err)
}

func TestStatusValue(t *testing.T) {
	var s statusValue
	require.NoError(t, s.Set(" standby "))
	assert.Equal(t, domain.StatusStandby, s.status)
	assert.Error(t, s.Set("done"))

	var d directionValue
	require.NoError(t, d.Set("up"))
	assert.Equal(t, "prev", d.String())
	assert.Error(t, d.Set("sideways"))
}
