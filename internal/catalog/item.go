package catalog

import (
	"fmt"
	"time"
)

// Item is an immutable snapshot of one installable addon as returned by a
// provider. The marketplace never mutates items.
type Item struct {
	Provider    Provider
	ID          string
	Title       string
	Description string
	Author      string
	Downloads   int64
	Categories  []string
	IconURL     string
	Screenshots []string
	Detail      Detail
}

// Key returns the provider-scoped identity of the item.
func (it Item) Key() Key {
	return Key{Provider: it.Provider, ID: it.ID}
}

// Name returns the title, falling back to the identifier.
func (it Item) Name() string {
	if it.Title != "" {
		return it.Title
	}
	return it.ID
}

// WebURL builds a link to the item's page on its provider's site.
func (it Item) WebURL() string {
	switch d := it.Detail.(type) {
	case ModrinthDetail:
		slug := d.Slug
		if slug == "" {
			slug = it.ID
		}
		projectType := d.ProjectType
		if projectType == "" {
			projectType = "project"
		}
		return fmt.Sprintf("https://modrinth.com/%s/%s", projectType, slug)
	case CurseForgeDetail:
		if d.WebsiteURL != "" {
			return d.WebsiteURL
		}
		return fmt.Sprintf("https://www.curseforge.com/projects/%d", d.ModID)
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("catalog: unhandled detail type %T", d))
	}
}

// Detail carries provider-specific fields. It is sealed: only the types in
// this package implement it.
type Detail interface {
	provider() Provider
}

// ModrinthDetail holds Modrinth project fields.
type ModrinthDetail struct {
	Slug        string
	ProjectType string // "mod", "plugin", ...
}

func (ModrinthDetail) provider() Provider { return Modrinth }

// CurseForgeDetail holds CurseForge mod fields.
type CurseForgeDetail struct {
	ModID      int
	ClassID    int
	Slug       string
	WebsiteURL string
}

func (CurseForgeDetail) provider() Provider { return CurseForge }

// DetailProvider reports which provider a detail belongs to, or
// ProviderUnknown for a nil detail.
func DetailProvider(d Detail) Provider {
	if d == nil {
		return ProviderUnknown
	}
	return d.provider()
}

// Dependencies is the result of one dependency lookup.
type Dependencies struct {
	Required []Item
	Optional []Item
}

// Version is one published release of an item.
type Version struct {
	ID           string
	Number       string
	Published    time.Time
	GameVersions []string
	Loaders      []string
	Files        []File
}

// PrimaryFile returns the file flagged primary, or the first file.
func (v Version) PrimaryFile() (File, bool) {
	for _, f := range v.Files {
		if f.Primary {
			return f, true
		}
	}
	if len(v.Files) > 0 {
		return v.Files[0], true
	}
	return File{}, false
}

// File is a downloadable artifact of a version.
type File struct {
	URL     string
	Name    string
	Size    int64
	SHA1    string
	Primary bool
}

// Category is a provider-scoped search facet.
type Category struct {
	ID   string // value sent in search requests
	Name string
}
