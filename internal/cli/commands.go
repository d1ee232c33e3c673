package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pribylovaa/go-expense-tracker/internal/models"
)

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return errUsage
	}

	pass, err := a.prompt("Password", *password)
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, *email, pass); err != nil {
		return err
	}

	a.printWelcome()
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flags("register")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "full name")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *name == "" {
		return errUsage
	}

	pass, err := a.prompt("Password", *password)
	if err != nil {
		return err
	}

	if err := a.session.Register(ctx, *email, pass, *name); err != nil {
		return err
	}

	a.printWelcome()
	return nil
}

func (a *App) printWelcome() {
	if u := a.session.User(); u != nil {
		fmt.Fprintf(a.out, "Logged in as %s <%s>\n", u.FullName, u.Email)
	}
}

func (a *App) logout(ctx context.Context, _ []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) whoami(_ context.Context, _ []string) error {
	u := a.session.User()
	fmt.Fprintf(a.out, "%s <%s>\nid: %s\n", u.FullName, u.Email, u.ID)
	return nil
}

func (a *App) groups(ctx context.Context, args []string) error {
	name, rest, err := sub(args)
	if err != nil {
		return err
	}

	switch name {
	case "list":
		list, err := a.api.Groups.List(ctx)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Fprintln(a.out, "No groups yet.")
			return nil
		}

		me := a.session.User().ID
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tMEMBERS\tROLE")
		for _, g := range list {
			role := ""
			if m, ok := g.Member(me); ok {
				role = m.Role
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", g.ID, g.Name, len(g.Members), role)
		}
		return tw.Flush()

	case "create":
		fs := a.flags("groups create")
		gname := fs.String("name", "", "group name")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		g, err := a.api.Groups.Create(ctx, *gname)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "Created group %q (%s)\n", g.Name, g.ID)
		return nil

	case "show":
		fs := a.flags("groups show")
		id := fs.String("group", "", "group id")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		g, err := a.api.Groups.Get(ctx, *id)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "%s (%s)\n", g.Name, g.ID)
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "USER\tNAME\tROLE")
		for _, m := range g.Members {
			full := "-"
			if m.FullName != nil {
				full = *m.FullName
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.UserID, full, m.Role)
		}
		if len(g.CustomCategories) > 0 {
			fmt.Fprintf(tw, "\ncustom categories: %s\n", strings.Join(g.CustomCategories, ", "))
		}
		return tw.Flush()
	}

	return errUsage
}

func (a *App) members(ctx context.Context, args []string) error {
	name, rest, err := sub(args)
	if err != nil {
		return err
	}

	fs := a.flags("members " + name)
	group := fs.String("group", "", "group id")
	user := fs.String("user", "", "user id")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	var res *models.MemberActionResponse
	switch name {
	case "add":
		res, err = a.api.Members.Add(ctx, *group, *user)
	case "promote":
		res, err = a.api.Members.Promote(ctx, *group, *user)
	case "remove":
		res, err = a.api.Members.Remove(ctx, *group, *user)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: %s\n", res.Message, res.UserID)
	return nil
}

func (a *App) expenses(ctx context.Context, args []string) error {
	name, rest, err := sub(args)
	if err != nil {
		return err
	}

	switch name {
	case "list":
		fs := a.flags("expenses list")
		group := fs.String("group", "", "group id")
		page := fs.Int("page", 0, "page number (1-based)")
		limit := fs.Int("limit", 0, "items per page (max 100)")
		asc := fs.Bool("asc", false, "oldest first")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		p := models.ListExpensesParams{Page: *page, Limit: *limit}
		if *asc {
			p.SortOrder = models.SortAsc
		}

		res, err := a.api.Expenses.List(ctx, *group, p)
		if err != nil {
			return err
		}

		if title := a.api.Groups.Name(ctx, *group); title != "" {
			fmt.Fprintf(a.out, "%s\n", title)
		}

		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTITLE\tCATEGORY\tAMOUNT")
		for _, e := range res.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", e.Date, e.Title, e.Category, e.Amount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(a.out, "page %d of %d, %d total\n", res.Page, res.Pages, res.Total)
		return nil

	case "add":
		fs := a.flags("expenses add")
		group := fs.String("group", "", "group id")
		title := fs.String("title", "", "what was paid for")
		amount := fs.Float64("amount", 0, "amount (> 0)")
		category := fs.String("category", "", "category")
		date := fs.String("date", time.Now().Format(time.DateOnly), "date YYYY-MM-DD")
		desc := fs.String("desc", "", "description")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		e, err := a.api.Expenses.Create(ctx, *group, models.NewExpense{
			Title:       *title,
			Amount:      *amount,
			Category:    *category,
			Description: *desc,
			Date:        *date,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "Added %q %.2f on %s (%s)\n", e.Title, e.Amount, e.Date, e.ID)
		return nil
	}

	return errUsage
}

func (a *App) categories(ctx context.Context, args []string) error {
	name, rest, err := sub(args)
	if err != nil {
		return err
	}

	fs := a.flags("categories " + name)
	group := fs.String("group", "", "group id")
	cname := fs.String("name", "", "category name")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch name {
	case "list":
		list, err := a.api.Categories.List(ctx, *group)
		if err != nil {
			return err
		}

		for _, c := range list {
			fmt.Fprintln(a.out, c)
		}
		return nil

	case "add":
		res, err := a.api.Categories.Add(ctx, *group, *cname)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "%s: %s\n", res.Message, res.Category)
		return nil
	}

	return errUsage
}

func (a *App) stats(ctx context.Context, args []string) error {
	fs := a.flags("stats")
	group := fs.String("group", "", "group id")
	period := fs.String("period", "", "all, year or month")
	year := fs.Int("year", 0, "year for -period year|month")
	month := fs.Int("month", 0, "month for -period month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := a.api.Stats.Get(ctx, *group, models.StatsParams{Period: *period, Year: *year, Month: *month})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "total: %.2f\n", st.Total)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nCATEGORY\tTOTAL")
	for _, c := range st.ByCategory {
		fmt.Fprintf(tw, "%s\t%.2f\n", c.Category, c.Total)
	}
	fmt.Fprintln(tw, "\nUSER\tTOTAL")
	for _, u := range st.ByUser {
		fmt.Fprintf(tw, "%s\t%.2f\n", u.UserID, u.Total)
	}
	fmt.Fprintln(tw, "\nMONTH\tTOTAL")
	for _, m := range st.Monthly {
		fmt.Fprintf(tw, "%04d-%02d\t%.2f\n", m.Year, m.Month, m.Total)
	}

	return tw.Flush()
}
