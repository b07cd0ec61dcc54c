package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "pkg_bundle,Lot/Job Num,Qty Ship,UOM,Net Weight (LB),Net Weight (KG)\nA1,J7,3.00,PC,10,5\n"

func backends(t *testing.T) map[string]Store {
	t.Helper()

	disk, err := NewDiskStore(filepath.Join(t.TempDir(), "outputs"), filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "packlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendDisk:   disk,
		BackendSQLite: sqlite,
	}
}

func artifact(id, source string, created time.Time) *Artifact {
	return &Artifact{
		ID:         id,
		Filename:   Filename(id, source),
		SourceName: source,
		CSV:        []byte(sampleCSV),
		Source:     []byte("%PDF-1.4 fake"),
		Records:    1,
		CreatedAt:  created,
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := artifact("0123456789ab", "Alcoa list.pdf", time.Now())
			require.NoError(t, store.Put(ctx, a))

			got, err := store.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
			assert.Equal(t, "0123456789ab_Alcoa_list.csv", got.Filename)
			assert.Equal(t, sampleCSV, string(got.CSV))
			assert.Equal(t, 1, got.Records)

			entries, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, a.ID, entries[0].ID)
			assert.Equal(t, a.Filename, entries[0].Filename)

			removed, err := store.Delete(ctx, a.ID)
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = store.Delete(ctx, a.ID)
			require.NoError(t, err)
			assert.False(t, removed)

			_, err = store.Get(ctx, a.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_RejectsInvalidIDs(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "../etc", "ABC", "0123*", "0123456789abcdef0123456789abcdef0"} {
				_, err := store.Get(ctx, id)
				assert.ErrorIs(t, err, ErrInvalidID, id)

				_, err = store.Delete(ctx, id)
				assert.ErrorIs(t, err, ErrInvalidID, id)
			}

			err := store.Put(ctx, &Artifact{ID: "abc", Filename: "zzz_x.csv"})
			assert.Error(t, err)
		})
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{BackendMemory, BackendSQLite} {
		store := backends(t)[name]
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, artifact("aaaaaaaaaaaa", "one.pdf", base)))
			require.NoError(t, store.Put(ctx, artifact("bbbbbbbbbbbb", "two.pdf", base.Add(time.Minute))))

			entries, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "bbbbbbbbbbbb", entries[0].ID)
			assert.Equal(t, "aaaaaaaaaaaa", entries[1].ID)
		})
	}
}

func TestStore_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, store.Put(ctx, artifact(NewID(), "doc.pdf", time.Now())))
				}()
			}
			wg.Wait()

			entries, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, entries, 16)
		})
	}
}

func TestDiskStore_Layout(t *testing.T) {
	ctx := context.Background()
	outDir := filepath.Join(t.TempDir(), "outputs")
	upDir := filepath.Join(t.TempDir(), "uploads")

	store, err := NewDiskStore(outDir, upDir)
	require.NoError(t, err)

	a := artifact("00000000beef", "march.pdf", time.Now())
	require.NoError(t, store.Put(ctx, a))

	assert.FileExists(t, filepath.Join(outDir, "00000000beef_march.csv"))
	assert.FileExists(t, filepath.Join(upDir, "00000000beef_march.pdf"))

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Source, got.Source)
	assert.Equal(t, "march.pdf", got.SourceName)

	// a file dropped in as <id>.csv is still served and listed
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "0000cafe.csv"), []byte(sampleCSV), 0o644))
	got, err = store.Get(ctx, "0000cafe")
	require.NoError(t, err)
	assert.Equal(t, "0000cafe.csv", got.Filename)

	// names without an id prefix are skipped by List
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "Report Final.csv"), []byte(sampleCSV), 0o644))
	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	removed, err := store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, filepath.Join(upDir, "00000000beef_march.pdf"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"memory", Options{Backend: BackendMemory}, false},
		{"disk", Options{Backend: BackendDisk, OutputDir: filepath.Join(dir, "out")}, false},
		{"sqlite", Options{Backend: BackendSQLite, DBPath: filepath.Join(dir, "r.db")}, false},
		{"disk without dir", Options{Backend: BackendDisk}, true},
		{"unknown", Options{Backend: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}
}

func TestNewIDAndFilename(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 12)
	assert.NoError(t, ValidateID(id))
	assert.NotEqual(t, id, NewID())

	assert.Equal(t, "abc_packing_list.csv", Filename("abc", ""))
	assert.Equal(t, "abc_evil.csv", Filename("abc", "../../evil.pdf"))
	assert.Equal(t, "abc_Lista_2025.csv", Filename("abc", "Lista 2025.PDF"))
}

func TestSecureName(t *testing.T) {
	assert.Equal(t, "my_file", SecureName("my file"))
	assert.Equal(t, "file", SecureName("..."))
	assert.Equal(t, "report-v2.final", SecureName("report-v2.final"))
	assert.Equal(t, "naive", SecureName("naïve"))
}
