package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"campus-market/internal/domain"
	"campus-market/internal/service"

	"github.com/spf13/cobra"
)

type rootCmd struct {
	*cobra.Command
	app *app
}

func (r *rootCmd) close() {
	r.app.close()
}

func newRootCmd() *rootCmd {
	root := &rootCmd{}
	var cookieHeader string
	root.Command = &cobra.Command{
		Use:           "campus-market",
		Short:         "Buy and sell within your BITS campus",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), cookieHeader)
			if err != nil {
				return err
			}
			root.app = a
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cookieHeader, "cookie", "",
		"raw Cookie header from a signed-in browser, used for this run only (default $MARKET_COOKIE)")

	get := func() *app { return root.app }

	root.AddCommand(
		newLoginCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
		newBrowseCmd(get),
		newSearchCmd(get),
		newShowCmd(get),
		newMineCmd(get),
		newPostCmd(get),
		newEditCmd(get),
		newBatchCmd(get, domain.MethodDelete, "delete", "Delete listings"),
		newBatchCmd(get, domain.MethodMarkSold, "mark-sold", "Mark listings as sold"),
		newBatchCmd(get, domain.MethodMarkUnsold, "mark-unsold", "Mark listings as available again"),
		newBatchCmd(get, domain.MethodRepost, "repost", "Move listings back to the top of the feed"),
		newFeedbackCmd(get),
	)
	return root
}

func newLoginCmd(get func() *app) *cobra.Command {
	var idToken string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google ID token for your BITS mail account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if idToken == "" {
				idToken = os.Getenv("ID_TOKEN")
			}
			session, err := get().auth.Login(cmd.Context(), idToken)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", session.Email, session.Campus)
			return nil
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token (defaults to $ID_TOKEN)")
	return cmd
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget local credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := get().auth.Logout(cmd.Context())
			return err
		},
	}
}

func newWhoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := get().auth.Current()
			if errors.Is(err, domain.ErrSessionNotFound) {
				return errNotSignedIn
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nCampus: %s\nSince:  %s\n",
				session.Name, session.Email, session.Campus, session.IssuedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

type filterFlags struct {
	search   string
	category string
	campus   string
	page     int
	sort     string
	sold     string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.search, "search", "", "search text")
	cmd.Flags().StringVar(&ff.category, "category", "", "category filter")
	cmd.Flags().StringVar(&ff.campus, "campus", "", "campus filter (defaults to your campus)")
	cmd.Flags().IntVar(&ff.page, "page", 1, "page number")
	cmd.Flags().StringVar(&ff.sort, "sort", "newest", "newest, price-asc or price-desc")
	cmd.Flags().StringVar(&ff.sold, "sold", "", "sold, unsold or empty for all")
}

func (ff *filterFlags) filters(a *app) (domain.Filters, error) {
	f := domain.Filters{Search: ff.search, Page: ff.page}

	var err error
	if f.Sort, err = domain.ParseSortMode(ff.sort); err != nil {
		return f, err
	}
	if ff.category != "" {
		if f.Category, err = domain.ParseCategory(ff.category); err != nil {
			return f, err
		}
	}
	if ff.campus != "" {
		if f.Campus, err = domain.ParseCampus(ff.campus); err != nil {
			return f, err
		}
	} else if session, err := a.auth.Current(); err == nil {
		f.Campus = session.Campus
	}
	switch ff.sold {
	case "":
	case "sold":
		f.Sold = domain.SoldOnly
	case "unsold":
		f.Sold = domain.UnsoldOnly
	default:
		return f, domain.ErrInvalidInput
	}
	return f, nil
}

func newBrowseCmd(get func() *app) *cobra.Command {
	ff := &filterFlags{}
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List one page of the listing feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			f, err := ff.filters(a)
			if err != nil {
				return err
			}
			page, err := a.query.Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), f, page)
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func newSearchCmd(get func() *app) *cobra.Command {
	ff := &filterFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Interactive search: type to search, /page=N /sort= /campus= /category= /sold= /clear",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			f, err := ff.filters(a)
			if err != nil {
				return err
			}
			return runSearch(cmd, a, f)
		},
	}
	ff.register(cmd)
	return cmd
}

// runSearch re-queries as input settles. A newer query cancels the one
// still in flight, so a slow stale result never overwrites a fresh one.
func runSearch(cmd *cobra.Command, a *app, f domain.Filters) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	debounce := service.NewDebouncer(service.DefaultSearchDelay)
	defer debounce.Stop()

	var (
		mu         sync.Mutex
		cancelPrev context.CancelFunc = func() {}
		totalPages int
	)

	run := func(f domain.Filters) {
		mu.Lock()
		cancelPrev()
		qctx, cancel := context.WithCancel(ctx)
		cancelPrev = cancel
		if totalPages > 0 {
			f.Page = domain.ClampPage(f.Page, totalPages)
		}
		mu.Unlock()

		page, err := a.query.Query(qctx, f)

		mu.Lock()
		defer mu.Unlock()
		if qctx.Err() != nil {
			return
		}
		var qerr *service.QueryError
		switch {
		case errors.As(err, &qerr):
			fmt.Fprintf(cmd.ErrOrStderr(), "%v (press enter to retry)\n", err)
		case err != nil:
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		default:
			totalPages = page.TotalPages
			printPage(out, f, page)
		}
	}

	run(f)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			current := f
			debounce.Trigger(func() { run(current) })
			continue
		}
		next, err := service.ApplyInput(f, line)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			continue
		}
		f = next
		current := f
		debounce.Trigger(func() { run(current) })
	}

	debounce.Stop()
	mu.Lock()
	cancelPrev()
	mu.Unlock()
	return scanner.Err()
}

func newShowCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := get().query.Item(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), detail)
			return nil
		},
	}
}

func newMineCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.state.Refresh(cmd.Context()); err != nil {
				return err
			}
			printListings(cmd.OutOrStdout(), a.state.Listings())
			return nil
		},
	}
}

type formFlags struct {
	title       string
	description string
	price       float64
	category    string
	hostel      string
	contact     string
	images      []string
}

func (ff *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.title, "title", "", "listing title")
	cmd.Flags().StringVar(&ff.description, "description", "", "listing description")
	cmd.Flags().Float64Var(&ff.price, "price", 0, "price in rupees")
	cmd.Flags().StringVar(&ff.category, "category", "", "listing category")
	cmd.Flags().StringVar(&ff.hostel, "hostel", "", "hostel for pickup")
	cmd.Flags().StringVar(&ff.contact, "contact", "", "contact phone number")
	cmd.Flags().StringArrayVar(&ff.images, "image", nil, "image file to attach (repeatable, up to 5)")
}

// apply copies the flags the user set onto form.
func (ff *formFlags) apply(cmd *cobra.Command, form *domain.ListingForm) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		form.Title = ff.title
	}
	if changed("description") {
		form.Description = ff.description
	}
	if changed("price") {
		form.Price = ff.price
	}
	if changed("category") {
		category, err := domain.ParseCategory(ff.category)
		if err != nil {
			return err
		}
		form.Category = category
	}
	if changed("hostel") {
		form.Hostel = ff.hostel
	}
	if changed("contact") {
		form.Contact = ff.contact
	}
	if changed("image") {
		form.Images = ff.images
	}
	return nil
}

func newPostCmd(get func() *app) *cobra.Command {
	ff := &formFlags{}
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create a listing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := &domain.ListingForm{}
			if err := ff.apply(cmd, form); err != nil {
				return err
			}
			return outcomeErr(get().listings.Create(cmd.Context(), form))
		},
	}
	ff.register(cmd)
	return cmd
}

func newEditCmd(get func() *app) *cobra.Command {
	ff := &formFlags{}
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a listing; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			detail, err := a.query.Item(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			form := domain.FormFromListing(detail.Details)
			if err := ff.apply(cmd, &form); err != nil {
				return err
			}
			return outcomeErr(a.listings.Update(cmd.Context(), args[0], &form))
		},
	}
	ff.register(cmd)
	return cmd
}

func newBatchCmd(get func() *app, method domain.Method, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return outcomeErr(get().listings.Batch(cmd.Context(), method, args))
		},
	}
}

func newFeedbackCmd(get func() *app) *cobra.Command {
	var (
		description string
		images      []string
	)
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Report a problem to the maintainers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return outcomeErr(get().listings.SendFeedback(cmd.Context(), &domain.FeedbackForm{
				Description: description,
				Images:      images,
			}))
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what went wrong")
	cmd.Flags().StringArrayVar(&images, "image", nil, "screenshot to attach (repeatable, up to 3)")
	return cmd
}
