// Package curseforge provides a catalog client for the CurseForge v1 API.
package curseforge

import (
	"context"
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

const (
	DefaultURL = "https://api.curseforge.com/v1"

	// minecraftGameID is CurseForge's game identifier for Minecraft.
	minecraftGameID = 432

	classMods          = 6
	classBukkitPlugins = 5

	relationOptional = 2
	relationRequired = 3

	hashAlgoSHA1 = 1
)

func init() {
	catalog.Register(catalog.CurseForge, func(opts catalog.Options) (catalog.Client, error) {
		return New(opts), nil
	})
}

// Client talks to one CurseForge API endpoint.
type Client struct {
	baseURL string
	http    *fetch.Client
	logger  *slog.Logger
}

// New creates a client. An empty BaseURL selects DefaultURL; APIKey is sent
// as the x-api-key header when set.
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
		fetch.WithHeader("x-api-key", opts.APIKey),
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
		logger:  logger.With("provider", "curseforge"),
	}
}

func (c *Client) Provider() catalog.Provider {
	return catalog.CurseForge
}

type modResponse struct {
	Data mod `json:"data"`
}

type modsResponse struct {
	Data       []mod      `json:"data"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	Index       int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

type mod struct {
	ID            int    `json:"id"`
	ClassID       int    `json:"classId"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Summary       string `json:"summary"`
	DownloadCount int64  `json:"downloadCount"`
	Links         struct {
		WebsiteURL string `json:"websiteUrl"`
	} `json:"links"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Categories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Logo *struct {
		ThumbnailURL string `json:"thumbnailUrl"`
	} `json:"logo"`
	Screenshots []struct {
		URL string `json:"url"`
	} `json:"screenshots"`
}

type filesResponse struct {
	Data []modFile `json:"data"`
}

type modFile struct {
	ID           int       `json:"id"`
	DisplayName  string    `json:"displayName"`
	FileName     string    `json:"fileName"`
	FileDate     time.Time `json:"fileDate"`
	FileLength   int64     `json:"fileLength"`
	DownloadURL  string    `json:"downloadUrl"`
	GameVersions []string  `json:"gameVersions"`
	Hashes       []struct {
		Value string `json:"value"`
		Algo  int    `json:"algo"`
	} `json:"hashes"`
	Dependencies []struct {
		ModID        int `json:"modId"`
		RelationType int `json:"relationType"`
	} `json:"dependencies"`
}

type categoriesResponse struct {
	Data []struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		ClassID int    `json:"classId"`
		IsClass bool   `json:"isClass"`
	} `json:"data"`
}

func classID(kind catalog.Kind) int {
	switch kind {
	case catalog.KindPlugin:
		return classBukkitPlugins
	default:
		return classMods
	}
}

// sortField maps a sort order to CurseForge's ModsSearchSortField.
func sortField(s catalog.Sort) int {
	switch s {
	case catalog.SortDownloads:
		return 6
	case catalog.SortUpdated:
		return 3
	case catalog.SortNewest:
		return 11
	case catalog.SortName:
		return 4
	default:
		return 2
	}
}

// loaderType maps a loader name to CurseForge's ModLoaderType.
func loaderType(loader string) int {
	switch strings.ToLower(loader) {
	case "forge":
		return 1
	case "fabric":
		return 4
	case "quilt":
		return 5
	case "neoforge":
		return 6
	default:
		return 0
	}
}

// knownLoaders are the gameVersions entries CurseForge uses for loaders.
var knownLoaders = map[string]bool{"forge": true, "fabric": true, "quilt": true, "neoforge": true}

func (m mod) item() catalog.Item {
	it := catalog.Item{
		Provider:    catalog.CurseForge,
		ID:          strconv.Itoa(m.ID),
		Title:       m.Name,
		Description: m.Summary,
		Downloads:   m.DownloadCount,
		Detail: catalog.CurseForgeDetail{
			ModID:      m.ID,
			ClassID:    m.ClassID,
			Slug:       m.Slug,
			WebsiteURL: m.Links.WebsiteURL,
		},
	}
	if len(m.Authors) > 0 {
		it.Author = m.Authors[0].Name
	}
	for _, cat := range m.Categories {
		it.Categories = append(it.Categories, cat.Name)
	}
	if m.Logo != nil {
		it.IconURL = m.Logo.ThumbnailURL
	}
	for _, s := range m.Screenshots {
		it.Screenshots = append(it.Screenshots, s.URL)
	}
	return it
}

// Search runs a mod search.
func (c *Client) Search(ctx context.Context, req catalog.SearchRequest) (*catalog.Page, error) {
	q := url.Values{}
	q.Set("gameId", strconv.Itoa(minecraftGameID))
	q.Set("classId", strconv.Itoa(classID(req.Kind)))
	if req.Query != "" {
		q.Set("searchFilter", req.Query)
	}
	if req.Category != "" {
		q.Set("categoryId", req.Category)
	}
	q.Set("sortField", strconv.Itoa(sortField(req.Sort)))
	if req.Sort == catalog.SortName {
		q.Set("sortOrder", "asc")
	} else {
		q.Set("sortOrder", "desc")
	}
	q.Set("index", strconv.Itoa(req.Offset))
	q.Set("pageSize", strconv.Itoa(req.Limit))
	if req.Target.GameVersion != "" {
		q.Set("gameVersion", req.Target.GameVersion)
	}
	if lt := loaderType(req.Target.Loader); lt != 0 && req.Kind == catalog.KindMod {
		q.Set("modLoaderType", strconv.Itoa(lt))
	}

	var resp modsResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/mods/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching curseforge: %w", err)
	}

	page := &catalog.Page{
		Items:  make([]catalog.Item, 0, len(resp.Data)),
		Offset: resp.Pagination.Index,
		Limit:  resp.Pagination.PageSize,
		Total:  resp.Pagination.TotalCount,
	}
	for _, m := range resp.Data {
		page.Items = append(page.Items, m.item())
	}
	c.logger.Debug("search complete", "query", req.Query, "hits", len(page.Items), "total", page.Total)
	return page, nil
}

// Item fetches a mod by numeric ID.
func (c *Client) Item(ctx context.Context, id string) (*catalog.Item, error) {
	var resp modResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/mods/"+url.PathEscape(id), &resp); err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, &catalog.NotFoundError{Key: catalog.Key{Provider: catalog.CurseForge, ID: id}}
		}
		return nil, fmt.Errorf("fetching curseforge mod %s: %w", id, err)
	}
	it := resp.Data.item()
	return &it, nil
}

func (c *Client) files(ctx context.Context, id string, target catalog.Target) ([]modFile, error) {
	q := url.Values{}
	if target.GameVersion != "" {
		q.Set("gameVersion", target.GameVersion)
	}
	if lt := loaderType(target.Loader); lt != 0 {
		q.Set("modLoaderType", strconv.Itoa(lt))
	}
	u := c.baseURL + "/mods/" + url.PathEscape(id) + "/files"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var resp filesResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, &catalog.NotFoundError{Key: catalog.Key{Provider: catalog.CurseForge, ID: id}}
		}
		return nil, fmt.Errorf("listing curseforge files of %s: %w", id, err)
	}
	return resp.Data, nil
}

// Versions lists the files of a mod compatible with target.
func (c *Client) Versions(ctx context.Context, id string, target catalog.Target) ([]catalog.Version, error) {
	files, err := c.files(ctx, id, target)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Version, 0, len(files))
	for _, f := range files {
		v := catalog.Version{
			ID:        strconv.Itoa(f.ID),
			Number:    f.DisplayName,
			Published: f.FileDate,
			Files: []catalog.File{{
				URL:     f.DownloadURL,
				Name:    f.FileName,
				Size:    f.FileLength,
				Primary: true,
			}},
		}
		for _, h := range f.Hashes {
			if h.Algo == hashAlgoSHA1 {
				v.Files[0].SHA1 = h.Value
			}
		}
		// gameVersions mixes game versions and loader names.
		for _, gv := range f.GameVersions {
			if knownLoaders[strings.ToLower(gv)] {
				v.Loaders = append(v.Loaders, strings.ToLower(gv))
			} else {
				v.GameVersions = append(v.GameVersions, gv)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Dependencies classifies the relations of the newest compatible file of id.
func (c *Client) Dependencies(ctx context.Context, id string, target catalog.Target) (*catalog.Dependencies, error) {
	files, err := c.files(ctx, id, target)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &catalog.Dependencies{}, nil
	}
	latest := files[0]
	for _, f := range files[1:] {
		if f.FileDate.After(latest.FileDate) {
			latest = f
		}
	}

	var required, optional, ids []int
	seen := make(map[int]bool)
	for _, d := range latest.Dependencies {
		if d.ModID == 0 || strconv.Itoa(d.ModID) == id || seen[d.ModID] {
			continue
		}
		switch d.RelationType {
		case relationRequired:
			required = append(required, d.ModID)
		case relationOptional:
			optional = append(optional, d.ModID)
		default:
			continue
		}
		seen[d.ModID] = true
		ids = append(ids, d.ModID)
	}
	if len(ids) == 0 {
		return &catalog.Dependencies{}, nil
	}

	mods, err := c.mods(ctx, ids)
	if err != nil {
		return nil, err
	}

	deps := &catalog.Dependencies{}
	for _, mid := range required {
		m, ok := mods[mid]
		if !ok {
			c.logger.Warn("required dependency not returned", "parent", id, "missing", mid)
			continue
		}
		deps.Required = append(deps.Required, m.item())
	}
	for _, mid := range optional {
		if m, ok := mods[mid]; ok {
			deps.Optional = append(deps.Optional, m.item())
		}
	}
	return deps, nil
}

// mods batch-fetches mods and indexes them by ID.
func (c *Client) mods(ctx context.Context, ids []int) (map[int]mod, error) {
	var resp modsResponse
	body := map[string][]int{"modIds": ids}
	if err := c.http.PostJSON(ctx, c.baseURL+"/mods", body, &resp); err != nil {
		return nil, fmt.Errorf("fetching curseforge mods: %w", err)
	}
	out := make(map[int]mod, len(resp.Data))
	for _, m := range resp.Data {
		out[m.ID] = m
	}
	return out, nil
}

// Categories lists the categories of the class matching kind.
func (c *Client) Categories(ctx context.Context, kind catalog.Kind) ([]catalog.Category, error) {
	q := url.Values{}
	q.Set("gameId", strconv.Itoa(minecraftGameID))
	q.Set("classId", strconv.Itoa(classID(kind)))

	var resp categoriesResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/categories?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("listing curseforge categories: %w", err)
	}

	var out []catalog.Category
	for _, cat := range resp.Data {
		if cat.IsClass {
			continue
		}
		out = append(out, catalog.Category{ID: strconv.Itoa(cat.ID), Name: cat.Name})
	}
	return out, nil
}
