package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParsePlanJSON(t *testing.T) {
	data := []byte(`{
		"train": ["ignored.mp4"],
		"zumba": ["z1.mp4", "z2.mp4"],
		"abseiling": ["a1.mp4"]
	}`)

	plan, err := ParsePlanJSON(data, []string{"train"})
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Category: "abseiling", Files: []string{"a1.mp4"}},
		{Category: "zumba", Files: []string{"z1.mp4", "z2.mp4"}},
	}, plan.Groups)
	assert.Equal(t, 3, plan.Len())
}

func TestParsePlanJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"array", `["a.mp4"]`},
		{"non list value", `{"zumba": "a.mp4"}`},
		{"traversal category", `{"../etc": ["a.mp4"]}`},
		{"traversal file", `{"zumba": ["../../a.mp4"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlanJSON([]byte(tt.data), nil)
			assert.Error(t, err)
		})
	}
}

func TestParsePlanList(t *testing.T) {
	in := strings.NewReader(`# comment

zumba/z1.mp4
abseiling   a1.mp4
zumba/z 2.mp4
playing guitar   pg_000010_000020.mp4
playing guitar/pg_000030_000040.mp4
`)
	plan, err := ParsePlanList(in)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Category: "zumba", Files: []string{"z1.mp4", "z 2.mp4"}},
		{Category: "abseiling", Files: []string{"a1.mp4"}},
		{Category: "playing guitar", Files: []string{"pg_000010_000020.mp4", "pg_000030_000040.mp4"}},
	}, plan.Groups)
}

func TestParsePlanList_Errors(t *testing.T) {
	_, err := ParsePlanList(strings.NewReader("just-one-field\n"))
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = ParsePlanList(strings.NewReader("zumba/../x.mp4\n"))
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestLoadPlan_ByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"train": [], "zumba": ["a.mp4"]}`), 0o644))
	txtPath := filepath.Join(dir, "plan.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("zumba/a.mp4\n"), 0o644))

	fromJSON, err := LoadPlan(jsonPath, []string{"train"})
	require.NoError(t, err)
	fromList, err := LoadPlan(txtPath, nil)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromList)

	_, err = LoadPlan(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)
}

func TestReorganizer_Apply(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "a1.mp4"))
	touch(t, filepath.Join(base, "z1.mp4"))
	touch(t, filepath.Join(base, "clip_00123.mp4"))
	touch(t, filepath.Join(base, "dup.mp4"))
	touch(t, filepath.Join(base, "zumba", "dup.mp4"))

	plan := &Plan{Groups: []Group{
		{Category: "abseiling", Files: []string{"a1.mp4"}},
		{Category: "zumba", Files: []string{"z1.mp4", "dup.mp4", "clip_00124.mp4", "gone.mp4"}},
	}}

	r := NewReorganizer(base, testLogger())
	rep, err := r.Apply(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, []Move{
		{Src: filepath.Join(base, "a1.mp4"), Dst: filepath.Join(base, "abseiling", "a1.mp4")},
		{Src: filepath.Join(base, "z1.mp4"), Dst: filepath.Join(base, "zumba", "z1.mp4")},
	}, rep.Moved)
	assert.Equal(t, []Move{
		{Src: filepath.Join(base, "dup.mp4"), Dst: filepath.Join(base, "zumba", "dup.mp4")},
	}, rep.Conflicts)
	assert.Equal(t, []Missing{
		{Category: "zumba", File: "clip_00124.mp4", Suggestion: "clip_00123.mp4"},
		{Category: "zumba", File: "gone.mp4"},
	}, rep.Missing)
	assert.Empty(t, rep.Failed)

	assert.FileExists(t, filepath.Join(base, "abseiling", "a1.mp4"))
	assert.FileExists(t, filepath.Join(base, "zumba", "z1.mp4"))
	assert.NoFileExists(t, filepath.Join(base, "a1.mp4"))
	assert.FileExists(t, filepath.Join(base, "dup.mp4"))
}

func TestReorganizer_DryRun(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "a1.mp4"))

	plan := &Plan{Groups: []Group{
		{Category: "abseiling", Files: []string{"a1.mp4"}},
		{Category: "zumba", Files: []string{"a1.mp4"}},
	}}

	r := NewReorganizer(base, testLogger())
	r.SetDryRun(true)
	rep, err := r.Apply(context.Background(), plan)
	require.NoError(t, err)

	assert.True(t, rep.DryRun)
	assert.Len(t, rep.Moved, 1)
	// The second listing finds the file already claimed by the first.
	require.Len(t, rep.Missing, 1)
	assert.Equal(t, "zumba", rep.Missing[0].Category)

	assert.FileExists(t, filepath.Join(base, "a1.mp4"))
	assert.NoDirExists(t, filepath.Join(base, "abseiling"))
}

func TestReorganizer_CrossDevice(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "a1.mp4")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))

	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { renameFunc = os.Rename })

	r := NewReorganizer(base, testLogger())
	rep, err := r.Apply(context.Background(), &Plan{Groups: []Group{
		{Category: "abseiling", Files: []string{"a1.mp4"}},
	}})
	require.NoError(t, err)
	require.Len(t, rep.Moved, 1)

	data, err := os.ReadFile(filepath.Join(base, "abseiling", "a1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.NoFileExists(t, src)
}

func TestReorganizer_MoveFailure(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "a1.mp4"))

	renameFunc = func(string, string) error { return errors.New("disk on fire") }
	t.Cleanup(func() { renameFunc = os.Rename })

	r := NewReorganizer(base, testLogger())
	rep, err := r.Apply(context.Background(), &Plan{Groups: []Group{
		{Category: "abseiling", Files: []string{"a1.mp4"}},
	}})
	require.NoError(t, err)
	require.Len(t, rep.Failed, 1)
	assert.EqualError(t, rep.Failed[0].Err, "disk on fire")
	assert.FileExists(t, filepath.Join(base, "a1.mp4"))
}

func TestReorganizer_Cancelled(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "a1.mp4"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReorganizer(base, testLogger())
	rep, err := r.Apply(ctx, &Plan{Groups: []Group{
		{Category: "abseiling", Files: []string{"a1.mp4"}},
	}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.Moved)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("/data/train/zumba/a.mp4", "/data/train"))
	assert.NoError(t, validatePath("/data/train", "/data/train"))
	assert.ErrorIs(t, validatePath("/data/train/../secret", "/data/train"), ErrPathTraversal)
	assert.ErrorIs(t, validatePath("/data/training/a.mp4", "/data/train"), ErrPathTraversal)
}

func TestCopyFile_DestinationExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "dst.mp4")
	touch(t, src)
	touch(t, dst)

	_, err := copyFile(src, dst)
	assert.ErrorIs(t, err, ErrDestinationExists)
}
