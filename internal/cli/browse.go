package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/market"
	"github.com/serverkit/addonctl/internal/prompt"
	"github.com/serverkit/addonctl/internal/terminal"
)

var (
	browseKind     string
	browseProvider string
)

var browseCmd = &cobra.Command{
	Use:   "browse [query]",
	Short: "Browse a catalog interactively and install what you pick",
	Long: `Open an interactive marketplace: search, filter by category, page through
results and pick addons across pages and providers. The picked addons are
reviewed together with their dependencies before anything is installed.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseKind, "kind", "k", "mod", "Addon kind: mod or plugin")
	browseCmd.Flags().StringVarP(&browseProvider, "provider", "p", "modrinth", "Catalog to start on")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !terminal.IsInteractive() {
		return fmt.Errorf("browse needs an interactive terminal; use search and install instead")
	}
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	kind, err := catalog.ParseKind(browseKind)
	if err != nil {
		return err
	}
	provider, err := catalog.ParseProvider(browseProvider)
	if err != nil {
		return err
	}
	if !env.target().Ready() {
		return errNoTarget
	}

	w := cmd.OutOrStdout()
	sess := env.newSession(w, kind, env.installerFor(kind), nil, market.WithProvider(provider))
	if len(args) > 0 {
		sess.Search().SetQuery(args[0])
	}
	return browse(cmd.Context(), w, sess, env.mux, prompt.NewHuhUI())
}

const (
	actionPick     = "pick"
	actionNext     = "next"
	actionPrev     = "prev"
	actionQuery    = "query"
	actionCategory = "category"
	actionSort     = "sort"
	actionProvider = "provider"
	actionReview   = "review"
	actionClear    = "clear"
	actionQuit     = "quit"
)

// categorySource lists provider categories. catalog.Mux implements it.
type categorySource interface {
	Categories(ctx context.Context, p catalog.Provider, kind catalog.Kind) ([]catalog.Category, error)
}

// browse runs the interactive loop until the user quits. Leaving the loop
// abandons the session, so the selection does not outlive it.
func browse(ctx context.Context, w io.Writer, sess *market.Session, cats categorySource, ui prompt.UI) error {
	defer sess.Abandon()

	search := sess.Search()
	for {
		if _, err := search.Search(ctx); err != nil {
			if errors.Is(err, market.ErrTargetNotReady) {
				return errNoTarget
			}
			warnf(w, "%v", err)
			search.DismissError()
		}
		view := search.View()
		fmt.Fprintln(w)
		printResults(w, view, sess.Selection().Contains)
		fmt.Fprintf(w, "%d selected\n", sess.Selection().Len())

		action := actionPick
		if err := ui.Select("What next?", browseActions(view, sess.Selection().Len()), &action); err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				return nil
			}
			return err
		}

		var err error
		switch action {
		case actionPick:
			err = pickFromPage(ui, sess, view)
		case actionNext:
			search.NextPage()
		case actionPrev:
			search.PrevPage()
		case actionQuery:
			q := view.State.Query
			if err = ui.Input("Search", &q); err == nil {
				search.SetQuery(q)
			}
		case actionCategory:
			err = chooseCategory(ctx, ui, search, cats, sess.Kind())
		case actionSort:
			err = chooseSort(ui, search)
		case actionProvider:
			err = chooseProvider(ui, search)
		case actionReview:
			if err = reviewAndInstall(ctx, w, sess, ui, reviewOptions{}); err != nil {
				warnf(w, "%v", err)
				err = nil
			}
		case actionClear:
			sess.Selection().Clear()
		case actionQuit:
			return nil
		}
		if errors.Is(err, prompt.ErrAborted) {
			continue
		}
		if err != nil {
			return err
		}
	}
}

func browseActions(view market.SearchView, selected int) []prompt.Option {
	var opts []prompt.Option
	if view.Result != nil && len(view.Result.Items) > 0 {
		opts = append(opts, prompt.Option{Label: "Pick addons on this page", Value: actionPick})
	}
	if view.State.Page < view.TotalPages {
		opts = append(opts, prompt.Option{Label: "Next page", Value: actionNext})
	}
	if view.State.Page > 1 {
		opts = append(opts, prompt.Option{Label: "Previous page", Value: actionPrev})
	}
	opts = append(opts,
		prompt.Option{Label: "Search", Value: actionQuery},
		prompt.Option{Label: "Category", Value: actionCategory},
		prompt.Option{Label: "Sort", Value: actionSort},
		prompt.Option{Label: "Switch provider", Value: actionProvider},
	)
	if selected > 0 {
		opts = append(opts,
			prompt.Option{Label: fmt.Sprintf("Review and install (%d selected)", selected), Value: actionReview},
			prompt.Option{Label: "Clear selection", Value: actionClear},
		)
	}
	return append(opts, prompt.Option{Label: "Quit", Value: actionQuit})
}

// pickFromPage lets the user check and uncheck items on the current page.
// Items selected on other pages are not affected.
func pickFromPage(ui prompt.UI, sess *market.Session, view market.SearchView) error {
	if view.Result == nil {
		return nil
	}
	sel := sess.Selection()
	options := make([]prompt.Option, len(view.Result.Items))
	for i, it := range view.Result.Items {
		options[i] = prompt.Option{
			Label:    fmt.Sprintf("%s (%s)", it.Name(), it.Key()),
			Value:    it.Key().String(),
			Selected: sel.Contains(it.Key()),
		}
	}

	var picked []string
	if err := ui.MultiSelect("Select addons", options, &picked); err != nil {
		return err
	}
	want := make(map[string]bool, len(picked))
	for _, v := range picked {
		want[v] = true
	}
	for _, it := range view.Result.Items {
		if want[it.Key().String()] != sel.Contains(it.Key()) {
			sel.Toggle(it)
		}
	}
	return nil
}

func chooseCategory(ctx context.Context, ui prompt.UI, search *market.SearchSession, cats categorySource, kind catalog.Kind) error {
	st := search.State()
	list, err := cats.Categories(ctx, st.Provider, kind)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	options := []prompt.Option{{Label: "Any", Value: ""}}
	for _, c := range list {
		options = append(options, prompt.Option{Label: c.Name, Value: c.ID})
	}
	value := st.Category
	if err := ui.Select("Category", options, &value); err != nil {
		return err
	}
	search.SetCategory(value)
	return nil
}

func chooseSort(ui prompt.UI, search *market.SearchSession) error {
	var options []prompt.Option
	for _, s := range []catalog.Sort{catalog.SortRelevance, catalog.SortDownloads, catalog.SortUpdated, catalog.SortNewest, catalog.SortName} {
		options = append(options, prompt.Option{Label: s.String(), Value: s.String()})
	}
	value := search.State().Sort.String()
	if err := ui.Select("Sort by", options, &value); err != nil {
		return err
	}
	order, err := catalog.ParseSort(value)
	if err != nil {
		return err
	}
	search.SetSort(order)
	return nil
}

func chooseProvider(ui prompt.UI, search *market.SearchSession) error {
	var options []prompt.Option
	for _, p := range catalog.Providers() {
		options = append(options, prompt.Option{Label: p.DisplayName(), Value: p.String()})
	}
	value := search.State().Provider.String()
	if err := ui.Select("Provider", options, &value); err != nil {
		return err
	}
	p, err := catalog.ParseProvider(value)
	if err != nil {
		return err
	}
	search.SetProvider(p)
	return nil
}
