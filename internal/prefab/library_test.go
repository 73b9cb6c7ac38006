package prefab

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"mirgo/internal/asset"
)

func TestLibraryConcurrentUpdatesAreSerialized(t *testing.T) {
	f := newFixture(t)
	doc := asset.NewDocument()
	doc.Root = &asset.Node{ID: doc.AllocID(), Name: "root", Active: true}
	_, err := f.lib.Create("counter", doc)
	require.NoError(t, err)

	var saves atomic.Int32
	f.lib.OnSaved.AddListener(func(Saved) { saves.Add(1) })

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := f.lib.Update("counter", func(cur *asset.Document, _ asset.Revision) (*asset.Document, error) {
				next, err := cur.Clone()
				if err != nil {
					return nil, err
				}
				next.Root.Children = append(next.Root.Children, &asset.Node{ID: next.AllocID(), Name: fmt.Sprint(i)})
				return next, nil
			})
			return err
		})
		g.Go(func() error {
			cur, _, err := f.lib.Load("counter")
			if err != nil {
				return err
			}
			_ = len(cur.Root.Children)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	cur, rev, err := f.lib.Load("counter")
	require.NoError(t, err)
	assert.Len(t, cur.Root.Children, 16)
	require.NoError(t, cur.Validate())
	assert.Equal(t, int32(16), saves.Load())

	_, stored, err := f.store.Load("counter")
	require.NoError(t, err)
	assert.Equal(t, rev, stored)
}

func TestLibraryKeepsEarlierRevisions(t *testing.T) {
	f := newFixture(t)
	doc := asset.NewDocument()
	doc.Root = &asset.Node{ID: doc.AllocID(), Name: "v1"}
	rev1, err := f.lib.Create("thing", doc)
	require.NoError(t, err)

	rev2, err := f.lib.Update("thing", func(cur *asset.Document, rev asset.Revision) (*asset.Document, error) {
		assert.Equal(t, rev1, rev)
		next, err := cur.Clone()
		require.NoError(t, err)
		next.Root.Name = "v2"
		return next, nil
	})
	require.NoError(t, err)

	old, ok := f.lib.Revision("thing", rev1)
	require.True(t, ok)
	assert.Equal(t, "v1", old.Root.Name)
	cur, ok := f.lib.Revision("thing", rev2)
	require.True(t, ok)
	assert.Equal(t, "v2", cur.Root.Name)

	_, err = f.lib.Create("thing", doc)
	assert.ErrorIs(t, err, ErrAssetExists)
}

func TestLibraryHistoryIsCapped(t *testing.T) {
	f := newFixture(t)
	doc := asset.NewDocument()
	doc.Root = &asset.Node{ID: doc.AllocID(), Name: "v0"}
	first, err := f.lib.Create("thing", doc)
	require.NoError(t, err)

	revs := []asset.Revision{first}
	for i := 1; i <= maxHistory+2; i++ {
		rev, err := f.lib.Update("thing", func(cur *asset.Document, _ asset.Revision) (*asset.Document, error) {
			next, err := cur.Clone()
			if err != nil {
				return nil, err
			}
			next.Root.Name = fmt.Sprintf("v%d", i)
			return next, nil
		})
		require.NoError(t, err)
		revs = append(revs, rev)
	}

	dropped := revs[:len(revs)-maxHistory]
	for _, rev := range dropped {
		_, ok := f.lib.Revision("thing", rev)
		assert.False(t, ok, rev.Short())
	}
	for _, rev := range revs[len(revs)-maxHistory:] {
		_, ok := f.lib.Revision("thing", rev)
		assert.True(t, ok, rev.Short())
	}
	cur, ok := f.lib.Revision("thing", revs[len(revs)-1])
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("v%d", maxHistory+2), cur.Root.Name)
}

func TestLibraryRefreshSeesExternalWrites(t *testing.T) {
	f := newFixture(t)
	doc := asset.NewDocument()
	doc.Root = &asset.Node{ID: doc.AllocID(), Name: "v1"}
	_, err := f.lib.Create("thing", doc)
	require.NoError(t, err)

	changed, err := f.lib.Refresh("thing")
	require.NoError(t, err)
	assert.False(t, changed)

	external := asset.NewDocument()
	external.Root = &asset.Node{ID: external.AllocID(), Name: "from disk"}
	_, err = f.store.Save("thing", external)
	require.NoError(t, err)

	changed, err = f.lib.Refresh("thing")
	require.NoError(t, err)
	assert.True(t, changed)
	cur, _, err := f.lib.Load("thing")
	require.NoError(t, err)
	assert.Equal(t, "from disk", cur.Root.Name)

	_, _, err = f.lib.Load("missing")
	assert.ErrorIs(t, err, asset.ErrNotFound)
}
