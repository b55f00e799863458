package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/contractmap/pkg/graph"
	"github.com/matzehuels/contractmap/pkg/search"
)

// searchCommand creates the search command printing suggestions.
func (c *CLI) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find companies in the pharmacy's hierarchy",
		Long: `Search matches the keyword against company names, business registration
numbers and CEO names of every company related to the pharmacy, the same
way the search box of a view does. Level is the number of contract hops
below the pharmacy.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			b, err := c.openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			spinner := newSpinnerWithContext(ctx, "Loading search index...")
			spinner.Start()
			idx, err := search.Load(ctx, b, cfg.Pharmacy.ID, logger)
			spinner.Stop()
			if err != nil {
				return err
			}

			keyword := strings.Join(args, " ")
			res := search.Suggest(idx, keyword)
			switch {
			case res.Message != "":
				printWarning("%s", res.Message)
				return nil
			case len(res.Companies) == 0:
				printWarning("Keyword must have at least %d characters", search.MinKeywordLen)
				return nil
			}

			fmt.Println(suggestionTable(res, idx.Ancestors(), cfg.Pharmacy.ID))
			if res.Total > len(res.Companies) {
				printDetail("showing %d of %d matches", len(res.Companies), res.Total)
			}
			return nil
		},
	}
}

// suggestionTable renders one row per suggested company.
func suggestionTable(res search.Result, anc *graph.Ancestors, pharmacyID string) string {
	rows := make([][]string, 0, len(res.Companies))
	for i, co := range res.Companies {
		level := "-"
		if n, ok := hopsTo(anc, co.ID, pharmacyID); ok {
			level = strconv.Itoa(n)
		}
		ceo := co.CEOName
		if ceo == "" {
			ceo = "—"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), co.Name, co.ID, ceo, level})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Company", "Registration", "CEO", "Level").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0 || col == 4:
				return lipgloss.NewStyle().Foreground(colorDim)
			case col == 1:
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle()
		}).
		String()
}

// hopsTo counts the parent links from id up to root. Unreachable ids and
// cycles report false.
func hopsTo(anc *graph.Ancestors, id, root string) (int, bool) {
	if anc == nil {
		return 0, false
	}
	seen := map[string]struct{}{id: {}}
	n := 0
	for cur := id; cur != root; n++ {
		parent, ok := anc.Parent(cur)
		if !ok {
			return 0, false
		}
		if _, loop := seen[parent]; loop {
			return 0, false
		}
		seen[parent] = struct{}{}
		cur = parent
	}
	return n, true
}
