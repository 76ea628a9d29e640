package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"campus-market/internal/domain"
	"campus-market/internal/service"
)

var (
	errNotCompleted    = errors.New("action did not complete")
	errNotSignedIn     = errors.New("not signed in")
	errBadCookieHeader = errors.New("cookie header holds no cookies")
)

// notifier prints mutation notifications to stderr and remembers the last
// one so the command can pick its exit status.
type notifier struct {
	mu   sync.Mutex
	w    io.Writer
	last *service.Notification
}

func (n *notifier) Notify(note service.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = &note

	fmt.Fprintf(n.w, "[%s] %s\n", note.Level, note.Message)
	if note.Reload {
		fmt.Fprintln(n.w, "Run `campus-market login` to sign in again.")
	}
}

// outcomeErr turns a finished mutation into the command's error.
func outcomeErr(outcome domain.Outcome, err error) error {
	if err != nil {
		return err
	}
	if outcome != domain.OutcomeSuccess {
		return fmt.Errorf("%w: %s", errNotCompleted, outcome)
	}
	return nil
}

func printListings(w io.Writer, listings []domain.Listing) {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY\tCAMPUS\tSTATUS")
	for _, l := range listings {
		status := "available"
		if l.Sold {
			status = "sold"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n", l.ID, truncate(l.Title, 40), l.Price, l.Category, l.Campus, status)
	}
	tw.Flush()
}

func printPage(w io.Writer, f domain.Filters, page *domain.Page) {
	printListings(w, page.Items)
	fmt.Fprintf(w, "Page %d of %d (%d listings)\n", f.Page, page.TotalPages, page.TotalCount)
}

func printDetail(w io.Writer, d *domain.ItemDetail) {
	l := d.Details
	fmt.Fprintf(w, "%s  [%s]\n", l.Title, l.ID)
	fmt.Fprintf(w, "Price:    %.2f\n", l.Price)
	fmt.Fprintf(w, "Category: %s\n", l.Category)
	fmt.Fprintf(w, "Campus:   %s (%s)\n", l.Campus, l.Hostel)
	fmt.Fprintf(w, "Seller:   %s <%s>, %s\n", l.SellerName, l.SellerEmail, l.Contact)
	if l.Sold {
		fmt.Fprintln(w, "Status:   sold")
	}
	if l.Description != "" {
		fmt.Fprintf(w, "\n%s\n", l.Description)
	}
	for _, img := range l.Images {
		fmt.Fprintf(w, "Image:    %s\n", img)
	}
	if len(d.SimilarItems) > 0 {
		fmt.Fprintln(w, "\nSimilar:")
		printListings(w, d.SimilarItems)
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
