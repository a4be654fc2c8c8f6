// Package page is the capability the scraping layers need from a live
// document. The browser tab implements it; pagetest provides a fake backed by
// a static HTML string.
package page

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Page is one live document in an isolated context.
type Page interface {
	// URL returns the current address.
	URL(ctx context.Context) (string, error)
	// Exists reports whether selector matches at least one element.
	Exists(ctx context.Context, selector string) (bool, error)
	// Document snapshots the current DOM for offline extraction.
	Document(ctx context.Context) (*goquery.Document, error)
	// ScrollBy scrolls the window vertically by px.
	ScrollBy(ctx context.Context, px int) error
	// ScrollTop scrolls back to the top.
	ScrollTop(ctx context.Context) error
	// ClickWhere clicks every visible element matching selector whose
	// lower-cased label satisfies match, and returns how many were clicked.
	// When first is set it stops after the first click.
	ClickWhere(ctx context.Context, selector string, first bool, match func(label string) bool) (int, error)
	// Navigate loads url in the same context.
	Navigate(ctx context.Context, url string) error
}

// MutationSource is implemented by pages that can push DOM change
// notifications. The returned cancel func releases the subscription.
type MutationSource interface {
	Mutations(ctx context.Context) (<-chan struct{}, func(), error)
}
