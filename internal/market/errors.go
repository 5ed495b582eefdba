package market

import (
	"errors"
	"fmt"

	"github.com/serverkit/addonctl/internal/catalog"
)

var (
	// ErrEmptyConfirmation is returned when a review is confirmed with
	// nothing chosen. No network call is made.
	ErrEmptyConfirmation = errors.New("nothing chosen to install")

	// ErrTargetNotReady is returned when a search is attempted before the
	// target game version is known. The request is not sent.
	ErrTargetNotReady = errors.New("target game version is not known yet")

	// ErrStaleResult is returned to the caller of a search whose response
	// arrived after a newer search was issued. The result is discarded.
	ErrStaleResult = errors.New("search result superseded by a newer request")

	// ErrInstallInProgress is returned when an install is started while
	// another one is running on the same orchestrator.
	ErrInstallInProgress = errors.New("an installation is already running")

	// ErrNoReview is returned when installing without an open review.
	ErrNoReview = errors.New("no review in progress")
)

// SearchError reports a failed catalog query. The previous result page is
// kept.
type SearchError struct {
	Request catalog.SearchRequest
	Err     error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("searching %s: %v", e.Request.Provider.DisplayName(), e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// ResolutionError reports a dependency lookup that aborted a resolution
// pass. The selection itself can still be reviewed and installed.
type ResolutionError struct {
	Key catalog.Key
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving dependencies of %s: %v", e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// InstallError reports the item whose installation halted a run, and how
// many items completed before it.
type InstallError struct {
	Item      catalog.Item
	Index     int
	Completed int
	Total     int
	Err       error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing %s (%d of %d, %d completed): %v",
		e.Item.Name(), e.Index+1, e.Total, e.Completed, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Remaining returns how many items were not attempted.
func (e *InstallError) Remaining() int {
	return e.Total - e.Index - 1
}
