package cli

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/contractmap/pkg/view"
)

// browseCommand creates the interactive terminal browser.
func (c *CLI) browseCommand() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Explore the hierarchy interactively",
		Long: `Browse opens a view of the pharmacy in the terminal. Expand and collapse
contractors with enter, move with the arrow keys and press / to search for
a company; picking a suggestion expands the path to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			// The screen belongs to the UI; logs go to a file or nowhere.
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := newLogger(w, c.Logger.GetLevel())

			b, err := c.openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			events := newBridge()
			opts := append(events.options(),
				view.WithLayout(cfg.Layout),
				view.WithLogger(logger.With("pharmacy", cfg.Pharmacy.ID)),
				view.WithManualLayout(),
			)
			if cfg.Search.Disabled {
				opts = append(opts, view.WithoutSearch())
			}
			v := view.New(b, cfg.Pharmacy.ID, opts...)
			defer v.Close()

			spinner := newSpinnerWithContext(ctx, "Loading contractors...")
			spinner.Start()
			err = v.Init(ctx)
			spinner.Stop()
			if err != nil {
				if msg := v.Blocked(); msg != "" {
					printError("%s", msg)
				}
				return err
			}

			p := tea.NewProgram(NewBrowseModel(ctx, v, events), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while browsing")

	return cmd
}

var _ tea.Model = BrowseModel{}
