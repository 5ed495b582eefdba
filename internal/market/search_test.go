package market

import (
	"context"
	"errors"
	"testing"

	"github.com/serverkit/addonctl/internal/catalog"
)

var target = catalog.Target{GameVersion: "1.21.1", Loader: "fabric"}

func TestSearchSuppressedWithoutTarget(t *testing.T) {
	f := &fakeSearcher{}
	s := NewSearchSession(f, catalog.KindMod, catalog.Modrinth, 20, nil)

	if _, err := s.Search(context.Background()); !errors.Is(err, ErrTargetNotReady) {
		t.Errorf("err = %v, want ErrTargetNotReady", err)
	}
	if f.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", f.calls.Load())
	}
}

func TestSearchFilterChangeResetsPage(t *testing.T) {
	s := NewSearchSession(&fakeSearcher{}, catalog.KindMod, catalog.Modrinth, 20, nil)

	changes := []struct {
		name  string
		apply func()
	}{
		{"query", func() { s.SetQuery("sodium") }},
		{"category", func() { s.SetCategory("optimization") }},
		{"sort", func() { s.SetSort(catalog.SortDownloads) }},
		{"page size", func() { s.SetPageSize(50) }},
		{"provider", func() { s.SetProvider(catalog.CurseForge) }},
	}
	for _, c := range changes {
		s.SetPage(3)
		c.apply()
		if got := s.State().Page; got != 1 {
			t.Errorf("%s: page = %d, want 1", c.name, got)
		}
	}
}

func TestSearchProviderSwitchClearsCategory(t *testing.T) {
	s := NewSearchSession(&fakeSearcher{}, catalog.KindMod, catalog.Modrinth, 20, nil)
	s.SetCategory("optimization")
	s.SetProvider(catalog.CurseForge)

	if got := s.State().Category; got != "" {
		t.Errorf("category = %q, want empty", got)
	}
}

func TestSearchPageOnlyChangesPage(t *testing.T) {
	s := NewSearchSession(&fakeSearcher{}, catalog.KindMod, catalog.Modrinth, 20, nil)
	s.SetQuery("lith")
	s.SetPage(4)

	st := s.State()
	if st.Page != 4 || st.Query != "lith" {
		t.Errorf("state = %+v, want page 4 query lith", st)
	}
	if s.PrevPage(); s.State().Page != 3 {
		t.Errorf("page after PrevPage = %d, want 3", s.State().Page)
	}
}

func TestSearchRequest(t *testing.T) {
	var got catalog.SearchRequest
	f := &fakeSearcher{answer: func(req catalog.SearchRequest) (*catalog.Page, error) {
		got = req
		return &catalog.Page{Total: 95}, nil
	}}
	s := NewSearchSession(f, catalog.KindPlugin, catalog.Modrinth, 20, nil)
	s.SetTarget(target)
	s.SetQuery("  worldedit ")
	s.SetPage(3)

	if _, err := s.Search(context.Background()); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.Query != "worldedit" || got.Offset != 40 || got.Limit != 20 || got.Kind != catalog.KindPlugin {
		t.Errorf("request = %+v", got)
	}
	if got.Target != target {
		t.Errorf("target = %+v, want %+v", got.Target, target)
	}
	if v := s.View(); v.TotalPages != 5 || v.Loading {
		t.Errorf("view = %+v, want 5 pages and not loading", v)
	}
}

func TestSearchFailureKeepsPreviousPage(t *testing.T) {
	fail := false
	f := &fakeSearcher{answer: func(req catalog.SearchRequest) (*catalog.Page, error) {
		if fail {
			return nil, errBoom
		}
		return &catalog.Page{Items: []catalog.Item{mr("a")}, Total: 1}, nil
	}}
	s := NewSearchSession(f, catalog.KindMod, catalog.Modrinth, 20, nil)
	s.SetTarget(target)
	if _, err := s.Search(context.Background()); err != nil {
		t.Fatalf("Search: %v", err)
	}

	fail = true
	_, err := s.Search(context.Background())
	var serr *SearchError
	if !errors.As(err, &serr) || !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want *SearchError wrapping boom", err)
	}

	v := s.View()
	if v.Result == nil || len(v.Result.Items) != 1 {
		t.Errorf("previous page lost: %+v", v.Result)
	}
	if v.Err == nil {
		t.Error("view has no error")
	}
	s.DismissError()
	if s.View().Err != nil {
		t.Error("error not dismissed")
	}
}

func TestSearchLateResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	f := &fakeSearcher{answer: func(req catalog.SearchRequest) (*catalog.Page, error) {
		if req.Query == "old" {
			close(entered)
			<-release
			return &catalog.Page{Items: []catalog.Item{mr("old")}}, nil
		}
		return &catalog.Page{Items: []catalog.Item{mr("new")}}, nil
	}}
	s := NewSearchSession(f, catalog.KindMod, catalog.Modrinth, 20, nil)
	s.SetTarget(target)

	s.SetQuery("old")
	done := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background())
		done <- err
	}()
	<-entered

	s.SetQuery("new")
	if _, err := s.Search(context.Background()); err != nil {
		t.Fatalf("Search(new): %v", err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrStaleResult) {
		t.Errorf("old search err = %v, want ErrStaleResult", err)
	}

	v := s.View()
	if v.Result == nil || len(v.Result.Items) != 1 || v.Result.Items[0].ID != "new" {
		t.Errorf("result = %+v, want the newer page", v.Result)
	}
}
