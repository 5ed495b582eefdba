package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/market"
)

var (
	searchProvider string
	searchKind     string
	searchCategory string
	searchSort     string
	searchPage     int
	searchPageSize int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a provider catalog",
	Long: `Search Modrinth or CurseForge for addons compatible with the target game
version and loader. Results are paged; use --page to move through them.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchProvider, "provider", "p", "modrinth", "Catalog to search: modrinth or curseforge")
	searchCmd.Flags().StringVarP(&searchKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "Only show addons in this category")
	searchCmd.Flags().StringVarP(&searchSort, "sort", "s", "relevance", "Sort by relevance, downloads, updated, newest or name")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page, starting at 1")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 0, "Results per page (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is the JSON form of one search hit.
type searchResult struct {
	Key         string   `json:"key"`
	PURL        string   `json:"purl"`
	Title       string   `json:"title"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Downloads   int64    `json:"downloads"`
	Categories  []string `json:"categories,omitempty"`
	URL         string   `json:"url,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	kind, err := catalog.ParseKind(searchKind)
	if err != nil {
		return err
	}
	provider, err := catalog.ParseProvider(searchProvider)
	if err != nil {
		return err
	}
	order, err := catalog.ParseSort(searchSort)
	if err != nil {
		return err
	}
	pageSize := searchPageSize
	if pageSize == 0 {
		pageSize = env.settings.PageSize
	}

	s := market.NewSearchSession(env.mux, kind, provider, pageSize, env.logger)
	s.SetTarget(env.target())
	s.SetQuery(strings.Join(args, " "))
	s.SetCategory(searchCategory)
	s.SetSort(order)
	s.SetPage(searchPage)

	if _, err := s.Search(cmd.Context()); err != nil {
		if errors.Is(err, market.ErrTargetNotReady) {
			return errNoTarget
		}
		return err
	}

	view := s.View()
	if searchJSON {
		return writeResultsJSON(cmd.OutOrStdout(), view.Result)
	}
	printResults(cmd.OutOrStdout(), view, nil)
	return nil
}

func writeResultsJSON(w io.Writer, page *catalog.Page) error {
	results := make([]searchResult, 0, len(page.Items))
	for _, it := range page.Items {
		results = append(results, searchResult{
			Key:         it.Key().String(),
			PURL:        it.Key().PURL(),
			Title:       it.Title,
			Author:      it.Author,
			Description: it.Description,
			Downloads:   it.Downloads,
			Categories:  it.Categories,
			URL:         it.WebURL(),
		})
	}
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printResults renders a result page as a table. Rows whose key is in
// selected are marked.
func printResults(w io.Writer, view market.SearchView, selected func(catalog.Key) bool) {
	page := view.Result
	if page == nil || len(page.Items) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  KEY\tNAME\tAUTHOR\tDOWNLOADS\tDESCRIPTION")
	for _, it := range page.Items {
		mark := " "
		if selected != nil && selected(it.Key()) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\t%s\n", mark, it.Key(), it.Name(), it.Author,
			humanize.Comma(it.Downloads), truncate(it.Description, 60))
	}
	tw.Flush()

	st := view.State
	fmt.Fprintf(w, "\nPage %d of %d (%s %s on %s)\n", st.Page, max(view.TotalPages, 1),
		humanize.Comma(int64(page.Total)), pluralize("result", page.Total), st.Provider.DisplayName())
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
