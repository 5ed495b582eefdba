// Package modrinth provides a catalog client for the Modrinth v2 API.
package modrinth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/fetch"
)

const DefaultURL = "https://api.modrinth.com/v2"

func init() {
	catalog.Register(catalog.Modrinth, func(opts catalog.Options) (catalog.Client, error) {
		return New(opts), nil
	})
}

// Client talks to one Modrinth API endpoint.
type Client struct {
	baseURL string
	http    *fetch.Client
	logger  *slog.Logger
}

// New creates a client. An empty BaseURL selects DefaultURL.
func New(opts catalog.Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(opts.UserAgent),
		fetch.WithHTTPClient(opts.HTTPClient),
		fetch.WithLogger(logger),
	}
	if opts.MaxRetries > 0 {
		fetchOpts = append(fetchOpts, fetch.WithMaxRetries(opts.MaxRetries))
	}
	if opts.Timeout > 0 {
		fetchOpts = append(fetchOpts, fetch.WithTimeout(opts.Timeout))
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    fetch.New(fetchOpts...),
		logger:  logger.With("provider", "modrinth"),
	}
}

func (c *Client) Provider() catalog.Provider {
	return catalog.Modrinth
}

type searchResponse struct {
	Hits      []searchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

type searchHit struct {
	ProjectID   string   `json:"project_id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Downloads   int64    `json:"downloads"`
	Categories  []string `json:"categories"`
	IconURL     string   `json:"icon_url"`
	Gallery     []string `json:"gallery"`
	ProjectType string   `json:"project_type"`
}

type project struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Downloads   int64    `json:"downloads"`
	Categories  []string `json:"categories"`
	IconURL     string   `json:"icon_url"`
	ProjectType string   `json:"project_type"`
	Team        string   `json:"team"`
	Gallery     []struct {
		URL string `json:"url"`
	} `json:"gallery"`
}

type version struct {
	ID            string       `json:"id"`
	ProjectID     string       `json:"project_id"`
	VersionNumber string       `json:"version_number"`
	DatePublished time.Time    `json:"date_published"`
	GameVersions  []string     `json:"game_versions"`
	Loaders       []string     `json:"loaders"`
	Files         []file       `json:"files"`
	Dependencies  []dependency `json:"dependencies"`
}

type file struct {
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"`
}

type dependency struct {
	VersionID      string `json:"version_id"`
	ProjectID      string `json:"project_id"`
	DependencyType string `json:"dependency_type"`
}

type categoryTag struct {
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
	Header      string `json:"header"`
}

// projectType maps a marketplace kind to Modrinth's project_type facet.
func projectType(kind catalog.Kind) string {
	switch kind {
	case catalog.KindPlugin:
		return "plugin"
	default:
		return "mod"
	}
}

func sortIndex(s catalog.Sort) string {
	switch s {
	case catalog.SortDownloads:
		return "downloads"
	case catalog.SortUpdated:
		return "updated"
	case catalog.SortNewest:
		return "newest"
	default:
		// Modrinth has no name ordering.
		return "relevance"
	}
}

// facets builds the AND-of-OR facet matrix for a search request.
func facets(req catalog.SearchRequest) string {
	groups := [][]string{{"project_type:" + projectType(req.Kind)}}
	if req.Target.GameVersion != "" {
		groups = append(groups, []string{"versions:" + req.Target.GameVersion})
	}
	if req.Target.Loader != "" {
		groups = append(groups, []string{"categories:" + req.Target.Loader})
	}
	if req.Category != "" {
		groups = append(groups, []string{"categories:" + req.Category})
	}
	data, _ := json.Marshal(groups)
	return string(data)
}

// Search runs a project search.
func (c *Client) Search(ctx context.Context, req catalog.SearchRequest) (*catalog.Page, error) {
	q := url.Values{}
	if req.Query != "" {
		q.Set("query", req.Query)
	}
	q.Set("facets", facets(req))
	q.Set("index", sortIndex(req.Sort))
	q.Set("offset", strconv.Itoa(req.Offset))
	q.Set("limit", strconv.Itoa(req.Limit))

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching modrinth: %w", err)
	}

	page := &catalog.Page{
		Items:  make([]catalog.Item, 0, len(resp.Hits)),
		Offset: resp.Offset,
		Limit:  resp.Limit,
		Total:  resp.TotalHits,
	}
	for _, h := range resp.Hits {
		page.Items = append(page.Items, catalog.Item{
			Provider:    catalog.Modrinth,
			ID:          h.ProjectID,
			Title:       h.Title,
			Description: h.Description,
			Author:      h.Author,
			Downloads:   h.Downloads,
			Categories:  h.Categories,
			IconURL:     h.IconURL,
			Screenshots: h.Gallery,
			Detail:      catalog.ModrinthDetail{Slug: h.Slug, ProjectType: h.ProjectType},
		})
	}
	c.logger.Debug("search complete", "query", req.Query, "hits", len(page.Items), "total", page.Total)
	return page, nil
}

func (p project) item() catalog.Item {
	shots := make([]string, 0, len(p.Gallery))
	for _, g := range p.Gallery {
		shots = append(shots, g.URL)
	}
	return catalog.Item{
		Provider:    catalog.Modrinth,
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Downloads:   p.Downloads,
		Categories:  p.Categories,
		IconURL:     p.IconURL,
		Screenshots: shots,
		Detail:      catalog.ModrinthDetail{Slug: p.Slug, ProjectType: p.ProjectType},
	}
}

// Item fetches a project by ID or slug.
func (c *Client) Item(ctx context.Context, id string) (*catalog.Item, error) {
	var p project
	if err := c.http.GetJSON(ctx, c.baseURL+"/project/"+url.PathEscape(id), &p); err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, &catalog.NotFoundError{Key: catalog.Key{Provider: catalog.Modrinth, ID: id}}
		}
		return nil, fmt.Errorf("fetching modrinth project %s: %w", id, err)
	}
	it := p.item()
	return &it, nil
}

func (c *Client) versions(ctx context.Context, id string, target catalog.Target) ([]version, error) {
	q := url.Values{}
	if target.GameVersion != "" {
		q.Set("game_versions", jsonList(target.GameVersion))
	}
	if target.Loader != "" {
		q.Set("loaders", jsonList(target.Loader))
	}
	u := c.baseURL + "/project/" + url.PathEscape(id) + "/version"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var out []version
	if err := c.http.GetJSON(ctx, u, &out); err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, &catalog.NotFoundError{Key: catalog.Key{Provider: catalog.Modrinth, ID: id}}
		}
		return nil, fmt.Errorf("listing modrinth versions of %s: %w", id, err)
	}
	return out, nil
}

func jsonList(values ...string) string {
	data, _ := json.Marshal(values)
	return string(data)
}

// Versions lists the versions of a project compatible with target.
func (c *Client) Versions(ctx context.Context, id string, target catalog.Target) ([]catalog.Version, error) {
	raw, err := c.versions(ctx, id, target)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Version, 0, len(raw))
	for _, v := range raw {
		cv := catalog.Version{
			ID:           v.ID,
			Number:       v.VersionNumber,
			Published:    v.DatePublished,
			GameVersions: v.GameVersions,
			Loaders:      v.Loaders,
		}
		for _, f := range v.Files {
			cv.Files = append(cv.Files, catalog.File{
				URL:     f.URL,
				Name:    f.Filename,
				Size:    f.Size,
				SHA1:    f.Hashes["sha1"],
				Primary: f.Primary,
			})
		}
		out = append(out, cv)
	}
	return out, nil
}

// Dependencies classifies the dependencies declared by the newest compatible
// version of id. Embedded and incompatible edges are ignored.
func (c *Client) Dependencies(ctx context.Context, id string, target catalog.Target) (*catalog.Dependencies, error) {
	raw, err := c.versions(ctx, id, target)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &catalog.Dependencies{}, nil
	}
	latest := raw[0]
	for _, v := range raw[1:] {
		if v.DatePublished.After(latest.DatePublished) {
			latest = v
		}
	}

	var required, optional, ids []string
	seen := make(map[string]bool)
	for _, d := range latest.Dependencies {
		if d.ProjectID == "" || d.ProjectID == id || seen[d.ProjectID] {
			continue
		}
		switch d.DependencyType {
		case "required":
			required = append(required, d.ProjectID)
		case "optional":
			optional = append(optional, d.ProjectID)
		default:
			continue
		}
		seen[d.ProjectID] = true
		ids = append(ids, d.ProjectID)
	}
	if len(ids) == 0 {
		return &catalog.Dependencies{}, nil
	}

	projects, err := c.projects(ctx, ids)
	if err != nil {
		return nil, err
	}

	deps := &catalog.Dependencies{}
	for _, pid := range required {
		p, ok := projects[pid]
		if !ok {
			c.logger.Warn("required dependency not returned", "parent", id, "missing", pid)
			continue
		}
		deps.Required = append(deps.Required, p.item())
	}
	for _, pid := range optional {
		if p, ok := projects[pid]; ok {
			deps.Optional = append(deps.Optional, p.item())
		}
	}
	return deps, nil
}

// projects batch-fetches projects and indexes them by ID.
func (c *Client) projects(ctx context.Context, ids []string) (map[string]project, error) {
	q := url.Values{}
	q.Set("ids", jsonList(ids...))

	var list []project
	if err := c.http.GetJSON(ctx, c.baseURL+"/projects?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("fetching modrinth projects: %w", err)
	}
	out := make(map[string]project, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// Categories lists the category tags applicable to kind.
func (c *Client) Categories(ctx context.Context, kind catalog.Kind) ([]catalog.Category, error) {
	var tags []categoryTag
	if err := c.http.GetJSON(ctx, c.baseURL+"/tag/category", &tags); err != nil {
		return nil, fmt.Errorf("listing modrinth categories: %w", err)
	}

	want := projectType(kind)
	var out []catalog.Category
	for _, t := range tags {
		// Loader tags are applied through the target, not as a category.
		if t.ProjectType != want || t.Header == "loaders" {
			continue
		}
		out = append(out, catalog.Category{ID: t.Name, Name: t.Name})
	}
	return out, nil
}
