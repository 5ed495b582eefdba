//go:build integration

package integration_test

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/catalog/modrinth"
	"github.com/serverkit/addonctl/internal/fetch"
	"github.com/serverkit/addonctl/internal/installer"
)

// testEnv holds an isolated server directory and a fake Modrinth API.
type testEnv struct {
	ServerDir string // stands in for a game server root
	ModsDir   string // <ServerDir>/mods
	ListsDir  string // ADDONCTL_LISTS, saved addon lists
	API       *fakeModrinth
	Mux       *catalog.Mux
	Fetch     *fetch.Client
}

// setupTestEnv starts the fake API and points every client at it.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	serverDir := t.TempDir()
	listsDir := t.TempDir()
	t.Setenv("ADDONCTL_LISTS", listsDir)
	t.Setenv("ADDONCTL_MODS_DIR", "")

	api := newFakeModrinth(t)
	client := modrinth.New(catalog.Options{BaseURL: api.URL + "/v2", HTTPClient: api.Client()})
	mux := catalog.NewMux(client)
	mux.SetTarget(catalog.Target{GameVersion: "1.21.1", Loader: "fabric"})

	return &testEnv{
		ServerDir: serverDir,
		ModsDir:   filepath.Join(serverDir, "mods"),
		ListsDir:  listsDir,
		API:       api,
		Mux:       mux,
		Fetch:     fetch.New(fetch.WithHTTPClient(api.Client()), fetch.WithMaxRetries(0)),
	}
}

func (env *testEnv) installer() *installer.Installer {
	ledger := installer.OpenLedger(filepath.Join(env.ModsDir, installer.LedgerFile))
	return installer.New(env.Mux, env.Fetch, env.ModsDir, ledger)
}

type apiProject struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Downloads   int64    `json:"downloads"`
	Categories  []string `json:"categories"`
	ProjectType string   `json:"project_type"`
}

type apiDependency struct {
	ProjectID      string `json:"project_id"`
	DependencyType string `json:"dependency_type"`
}

type apiFile struct {
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"`
}

type apiVersion struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	VersionNumber string          `json:"version_number"`
	DatePublished time.Time       `json:"date_published"`
	GameVersions  []string        `json:"game_versions"`
	Loaders       []string        `json:"loaders"`
	Files         []apiFile       `json:"files"`
	Dependencies  []apiDependency `json:"dependencies"`
}

// fakeModrinth serves the subset of the Modrinth v2 API the client uses,
// plus the file downloads.
type fakeModrinth struct {
	*httptest.Server

	mu       sync.Mutex
	projects []apiProject
	versions map[string][]apiVersion
	files    map[string][]byte
	requests []string
}

func newFakeModrinth(t *testing.T) *fakeModrinth {
	t.Helper()
	f := &fakeModrinth{
		versions: make(map[string][]apiVersion),
		files:    make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/search", f.search)
	mux.HandleFunc("GET /v2/project/{id}", f.project)
	mux.HandleFunc("GET /v2/project/{id}/version", f.projectVersions)
	mux.HandleFunc("GET /v2/projects", f.batch)
	mux.HandleFunc("GET /files/{name}", f.file)

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.Path)
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

// addMod registers a project with one fabric version for 1.21.1.
func (f *fakeModrinth) addMod(id, title string, deps ...apiDependency) {
	f.addVersion(id, title, "1.0.0", deps...)
}

func (f *fakeModrinth) addVersion(id, title, number string, deps ...apiDependency) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasProject(id) {
		f.projects = append(f.projects, apiProject{
			ID: id, Slug: strings.ToLower(title), Title: title,
			Description: title + " for tests", ProjectType: "mod", Categories: []string{"fabric"},
		})
	}

	name := id + "-" + number + ".jar"
	data := []byte("jar " + name)
	f.files[name] = data
	sum := sha1.Sum(data)

	published := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(f.versions[id])) * time.Hour)
	f.versions[id] = append([]apiVersion{{
		ID:            id + "-" + number,
		ProjectID:     id,
		VersionNumber: number,
		DatePublished: published,
		GameVersions:  []string{"1.21.1"},
		Loaders:       []string{"fabric"},
		Files: []apiFile{{
			URL: f.URL + "/files/" + name, Filename: name, Primary: true,
			Size: int64(len(data)), Hashes: map[string]string{"sha1": hex.EncodeToString(sum[:])},
		}},
		Dependencies: deps,
	}}, f.versions[id]...)
}

// corrupt makes the download of every version of id fail its checksum.
func (f *fakeModrinth) corrupt(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions[id] {
		for _, file := range v.Files {
			f.files[file.Filename] = []byte("corrupted")
		}
	}
}

func (f *fakeModrinth) hasProject(id string) bool {
	for _, p := range f.projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeModrinth) search(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	query := strings.ToLower(r.URL.Query().Get("query"))
	type hit struct {
		ProjectID   string   `json:"project_id"`
		Slug        string   `json:"slug"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Categories  []string `json:"categories"`
		ProjectType string   `json:"project_type"`
	}
	hits := []hit{}
	for _, p := range f.projects {
		if query == "" || strings.Contains(strings.ToLower(p.Title), query) {
			hits = append(hits, hit{p.ID, p.Slug, p.Title, p.Description, p.Categories, p.ProjectType})
		}
	}
	writeJSON(w, map[string]any{"hits": hits, "offset": 0, "limit": 20, "total_hits": len(hits)})
}

func (f *fakeModrinth) project(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == r.PathValue("id") {
			writeJSON(w, p)
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeModrinth) projectVersions(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	if !f.hasProject(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, f.versions[id])
}

func (f *fakeModrinth) batch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	if err := json.Unmarshal([]byte(r.URL.Query().Get("ids")), &ids); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out := []apiProject{}
	for _, id := range ids {
		for _, p := range f.projects {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	writeJSON(w, out)
}

func (f *fakeModrinth) file(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	data, ok := f.files[r.PathValue("name")]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/java-archive")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func required(id string) apiDependency { return apiDependency{ProjectID: id, DependencyType: "required"} }
func optional(id string) apiDependency { return apiDependency{ProjectID: id, DependencyType: "optional"} }

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected path to not exist: %s", path)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
