package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("Modrinth")
	require.NoError(t, err)
	assert.Equal(t, Modrinth, p)

	p, err = ParseProvider("cf")
	require.NoError(t, err)
	assert.Equal(t, CurseForge, p)

	_, err = ParseProvider("hangar")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestParseKey(t *testing.T) {
	t.Run("colon form", func(t *testing.T) {
		k, err := ParseKey("modrinth:AANobbMI")
		require.NoError(t, err)
		assert.Equal(t, Key{Provider: Modrinth, ID: "AANobbMI"}, k)
	})

	t.Run("purl form", func(t *testing.T) {
		k, err := ParseKey("pkg:curseforge/238222")
		require.NoError(t, err)
		assert.Equal(t, Key{Provider: CurseForge, ID: "238222"}, k)
	})

	t.Run("round trip through PURL", func(t *testing.T) {
		want := Key{Provider: Modrinth, ID: "sodium"}
		got, err := ParseKey(want.PURL())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ParseKey("modrinth:")
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := ParseKey("spigot:123")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestKeysAreProviderScoped(t *testing.T) {
	a := Item{Provider: Modrinth, ID: "abc"}
	b := Item{Provider: CurseForge, ID: "abc"}

	seen := map[Key]bool{a.Key(): true, b.Key(): true}
	assert.Len(t, seen, 2)
	assert.NotEqual(t, a.Key().String(), b.Key().String())
}

func TestItemWebURL(t *testing.T) {
	mr := Item{Provider: Modrinth, ID: "AANobbMI", Detail: ModrinthDetail{Slug: "sodium", ProjectType: "mod"}}
	assert.Equal(t, "https://modrinth.com/mod/sodium", mr.WebURL())

	cf := Item{Provider: CurseForge, ID: "238222", Detail: CurseForgeDetail{ModID: 238222}}
	assert.Equal(t, "https://www.curseforge.com/projects/238222", cf.WebURL())

	bare := Item{Provider: Modrinth, ID: "x"}
	assert.Empty(t, bare.WebURL())
	assert.Equal(t, ProviderUnknown, DetailProvider(bare.Detail))
	assert.Equal(t, CurseForge, DetailProvider(cf.Detail))
}

func TestTargetMatches(t *testing.T) {
	v := Version{GameVersions: []string{"1.20.1", "1.20.2"}, Loaders: []string{"fabric", "quilt"}}

	assert.True(t, Target{GameVersion: "1.20.1", Loader: "Fabric"}.Matches(v))
	assert.False(t, Target{GameVersion: "1.19.4"}.Matches(v))
	assert.False(t, Target{GameVersion: "1.20.1", Loader: "forge"}.Matches(v))
	assert.True(t, Target{}.Matches(v))
	assert.False(t, Target{}.Ready())
}

func TestVersionPrimaryFile(t *testing.T) {
	v := Version{Files: []File{{Name: "a.jar"}, {Name: "b.jar", Primary: true}}}
	f, ok := v.PrimaryFile()
	require.True(t, ok)
	assert.Equal(t, "b.jar", f.Name)

	_, ok = Version{}.PrimaryFile()
	assert.False(t, ok)
}

type stubClient struct {
	provider Provider
	target   Target
}

func (s *stubClient) Provider() Provider { return s.provider }
func (s *stubClient) Search(_ context.Context, req SearchRequest) (*Page, error) {
	return &Page{Items: []Item{{Provider: s.provider, ID: req.Query}}}, nil
}
func (s *stubClient) Item(_ context.Context, id string) (*Item, error) {
	return &Item{Provider: s.provider, ID: id}, nil
}
func (s *stubClient) Dependencies(_ context.Context, id string, target Target) (*Dependencies, error) {
	s.target = target
	return &Dependencies{}, nil
}
func (s *stubClient) Versions(_ context.Context, id string, target Target) ([]Version, error) {
	return []Version{{ID: id, Published: time.Unix(0, 0)}}, nil
}
func (s *stubClient) Categories(_ context.Context, kind Kind) ([]Category, error) {
	return []Category{{ID: kind.String()}}, nil
}

func TestMuxRoutesByProvider(t *testing.T) {
	mr := &stubClient{provider: Modrinth}
	m := NewMux(mr)
	m.SetTarget(Target{GameVersion: "1.20.1"})

	page, err := m.Search(context.Background(), SearchRequest{Provider: Modrinth, Query: "lithium"})
	require.NoError(t, err)
	assert.Equal(t, "lithium", page.Items[0].ID)

	_, err = m.Dependencies(context.Background(), Key{Provider: Modrinth, ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", mr.target.GameVersion)

	_, err = m.Search(context.Background(), SearchRequest{Provider: CurseForge})
	assert.True(t, errors.Is(err, ErrUnknownProvider))
	assert.Equal(t, []Provider{Modrinth}, m.Providers())
}

func TestRegistry(t *testing.T) {
	Register(Modrinth, func(opts Options) (Client, error) {
		return &stubClient{provider: Modrinth}, nil
	})

	c, err := New(Modrinth, Options{})
	require.NoError(t, err)
	assert.Equal(t, Modrinth, c.Provider())
	assert.Contains(t, Registered(), Modrinth)

	_, err = New(ProviderUnknown, Options{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestParseSortAndKind(t *testing.T) {
	s, err := ParseSort("downloads")
	require.NoError(t, err)
	assert.Equal(t, SortDownloads, s)
	_, err = ParseSort("stars")
	assert.Error(t, err)

	k, err := ParseKind("plugins")
	require.NoError(t, err)
	assert.Equal(t, KindPlugin, k)
	_, err = ParseKind("datapack")
	assert.Error(t, err)
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Key: Key{Provider: CurseForge, ID: "1"}})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "CurseForge")
}
