package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/market"
	"github.com/serverkit/addonctl/internal/prompt"
)

// reviewOptions controls the review step shared by install and browse.
type reviewOptions struct {
	yes    bool // accept the default choices without prompting
	noDeps bool // skip dependency resolution
}

// reviewAndInstall opens a review over the session's selection, lets the
// user adjust it, and installs the result. A cancelled review leaves the
// selection in place.
func reviewAndInstall(ctx context.Context, w io.Writer, sess *market.Session, ui prompt.UI, opts reviewOptions) error {
	var review *market.Review
	if opts.noDeps {
		review = sess.BeginReviewWithoutDependencies()
	} else {
		fmt.Fprintln(w, "Resolving dependencies...")
		var err error
		review, err = sess.BeginReview(ctx)
		if err != nil {
			warnf(w, "%v", err)
		}
	}
	fmt.Fprintln(w)
	market.PrintPlan(w, review)

	if !opts.yes {
		proceed, err := chooseReview(ui, review)
		if errors.Is(err, prompt.ErrAborted) || (err == nil && !proceed) {
			sess.DiscardReview()
			fmt.Fprintln(w, "Installation cancelled.")
			return nil
		}
		if err != nil {
			sess.DiscardReview()
			return err
		}
	}

	report, err := sess.Install(ctx)
	if errors.Is(err, market.ErrEmptyConfirmation) {
		sess.DiscardReview()
		fmt.Fprintln(w, "Nothing chosen, nothing installed.")
		return nil
	}
	printInstallResult(w, report, err)
	return err
}

// chooseReview shows the review as a multi-select, applies the answer and
// asks for confirmation. It reports whether to proceed.
func chooseReview(ui prompt.UI, review *market.Review) (bool, error) {
	entries := review.Entries()
	names := make(map[catalog.Key]string, len(entries))
	for _, e := range entries {
		names[e.Item.Key()] = e.Item.Name()
	}

	options := make([]prompt.Option, len(entries))
	for i, e := range entries {
		options[i] = prompt.Option{
			Label:    entryLabel(e, names),
			Value:    e.Item.Key().String(),
			Selected: e.Chosen,
		}
	}

	var picked []string
	if err := ui.MultiSelect("Choose what to install", options, &picked); err != nil {
		return false, err
	}
	keep := make(map[string]bool, len(picked))
	for _, v := range picked {
		keep[v] = true
	}
	chosen := 0
	for _, e := range entries {
		on := keep[e.Item.Key().String()]
		review.SetChosen(e.Item.Key(), on)
		if on {
			chosen++
		}
	}
	if chosen == 0 {
		return true, nil
	}

	proceed := true
	if err := ui.Confirm(fmt.Sprintf("Install %d %s?", chosen, pluralize("addon", chosen)), &proceed); err != nil {
		return false, err
	}
	return proceed, nil
}

func entryLabel(e market.ReviewEntry, names map[catalog.Key]string) string {
	label := fmt.Sprintf("%s (%s)", e.Item.Name(), e.Item.Key())
	switch e.Origin {
	case market.OriginRequired:
		label += ", required by " + names[e.Parent]
	case market.OriginOptional:
		label += ", optional for " + names[e.Parent]
	}
	return label
}

func printInstallResult(w io.Writer, report *market.InstallReport, err error) {
	fmt.Fprintln(w)
	var ierr *market.InstallError
	switch {
	case err == nil:
		fmt.Fprintf(w, "%s Installed %d %s.\n", color.GreenString("✓"), len(report.Installed), pluralize("addon", len(report.Installed)))
	case errors.As(err, &ierr):
		fmt.Fprintf(w, "%s Stopped at %s: %d of %d installed, %d not attempted.\n",
			color.RedString("✗"), ierr.Item.Name(), ierr.Completed, ierr.Total, ierr.Remaining())
	default:
		fmt.Fprintf(w, "%s Installation failed.\n", color.RedString("✗"))
	}
}
