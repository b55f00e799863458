package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/contractmap/pkg/config"
	"github.com/matzehuels/contractmap/pkg/pipeline"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for contractmap.

Bash:
  $ source <(contractmap completion bash)

Zsh:
  $ contractmap completion zsh > "${fpath[1]}/_contractmap"

Fish:
  $ contractmap completion fish | source

PowerShell:
  PS> contractmap completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// registerCompletions adds value completion for flags with a fixed set of
// choices.
func registerCompletions(root *cobra.Command) {
	fixed := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}

	_ = root.RegisterFlagCompletionFunc("provider", fixed(
		config.ProviderPostgREST, config.ProviderPostgres, config.ProviderMongo,
		config.ProviderNeo4j, config.ProviderMemory,
	))
	_ = root.RegisterFlagCompletionFunc("config", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"toml", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	for _, sub := range root.Commands() {
		if sub.Name() == "render" {
			_ = sub.RegisterFlagCompletionFunc("format", fixed(
				pipeline.FormatSVG, pipeline.FormatDOT, pipeline.FormatGraphviz, pipeline.FormatJSON,
			))
		}
	}
}
