package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/diewo77/care-meals/i18n"
	"github.com/diewo77/care-meals/internal/kitchen"
	"github.com/diewo77/care-meals/internal/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1).
			MarginRight(1)
	headStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	countStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func newKitchenCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kitchen",
		Short: "Kitchen tools that talk to a running server",
		Long: `Kitchen tools that talk to a running server over the REST API.

Credentials come from MEALS_EMAIL and MEALS_PASSWORD, the server from MEALS_URL.`,
	}
	cmd.AddCommand(newKitchenSummaryCmd(e), newKitchenToggleCmd(e))
	return cmd
}

func newKitchenSummaryCmd(e *env) *cobra.Command {
	var date, meal string
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard counts for one day and meal",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := kitchen.ParseDay(date)
			if err != nil {
				return err
			}
			mt, err := kitchen.ParseMeal(meal)
			if err != nil {
				return err
			}
			client, err := login(cmd.Context(), e)
			if err != nil {
				return err
			}
			board := kitchen.NewBoard(client)
			out := cmd.OutOrStdout()

			if watch <= 0 {
				v, err := board.Load(cmd.Context(), day, mt)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderView(v))
				return nil
			}
			return watchBoard(cmd.Context(), board, day, mt, watch, out, e.log)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today, UTC)")
	cmd.Flags().StringVar(&meal, "meal", "breakfast", "breakfast, lunch or dinner")
	cmd.Flags().DurationVar(&watch, "watch", 0, "reload at this interval until interrupted")
	return cmd
}

// watchBoard reloads the board every interval. A failed load keeps the last view on screen.
func watchBoard(ctx context.Context, board *kitchen.Board, day time.Time, meal models.MealType, every time.Duration, out io.Writer, log *zap.Logger) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		v, err := board.Load(ctx, day, meal)
		switch {
		case err == nil:
			fmt.Fprintln(out, renderView(v))
		case errors.Is(err, kitchen.ErrStale), errors.Is(err, context.Canceled):
		default:
			log.Warn("reload failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func newKitchenToggleCmd(e *env) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "toggle <order-id>",
		Short: "Flip an order between pending and prepared",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			client, err := login(cmd.Context(), e)
			if err != nil {
				return err
			}
			o, err := client.ToggleStatus(cmd.Context(), uint(id), models.OrderStatus(status))
			var apiErr *kitchen.APIError
			if errors.As(err, &apiErr) && apiErr.Code == "status_conflict" {
				return fmt.Errorf("order %d is no longer %s; check its current status", id, status)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s is now %s\n", o.ShortID(), o.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(models.StatusPending), "the status the order currently has")
	return cmd
}

func login(ctx context.Context, e *env) (*kitchen.Client, error) {
	if e.cfg.Client.Email == "" {
		return nil, errors.New("MEALS_EMAIL and MEALS_PASSWORD must be set")
	}
	c := kitchen.NewClient(e.cfg.Client.BaseURL)
	if err := c.Login(ctx, e.cfg.Client.Email, e.cfg.Client.Password); err != nil {
		return nil, err
	}
	e.log.Debug("logged in", zap.String("url", e.cfg.Client.BaseURL))
	return c, nil
}

// renderView lays the dashboard out as a row of bordered cards followed by the notes.
func renderView(v kitchen.View) string {
	t := func(code string) string { return i18n.T(i18n.DefaultLang, code) }

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", v.Date, t(string(v.MealType)))))
	b.WriteString("\n")

	summary := []string{
		headStyle.Render("Summary"),
		row(t("kitchen.total"), v.Summary.Total),
		row(t("pending"), v.Summary.Pending),
		row(t("prepared"), v.Summary.Prepared),
	}
	cards := []string{cardStyle.Render(strings.Join(summary, "\n"))}
	for _, c := range v.Categories {
		lines := []string{headStyle.Render(t(c.Category))}
		for _, it := range c.Items {
			lines = append(lines, row(t(it.Label), it.Count))
		}
		cards = append(cards, cardStyle.Render(strings.Join(lines, "\n")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))

	if len(v.Notes) == 0 {
		return b.String()
	}
	b.WriteString("\n" + headStyle.Render(t("kitchen.notes")) + "\n")
	for _, n := range v.Notes {
		status := mutedStyle.Render(string(n.Status))
		if n.Status == models.StatusPending {
			status = pendingStyle.Render(string(n.Status))
		}
		fmt.Fprintf(&b, "#%s %s %s\n", n.ShortID, n.Resident, status)
		if n.Aversions != "" {
			fmt.Fprintf(&b, "  dislikes: %s\n", n.Aversions)
		}
		if n.Notes != "" {
			fmt.Fprintf(&b, "  notes: %s\n", n.Notes)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func row(label string, n int) string {
	return fmt.Sprintf("%-22s %s", label, countStyle.Render(strconv.Itoa(n)))
}
