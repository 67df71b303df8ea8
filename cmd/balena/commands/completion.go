package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// Completion returns the completion command for shell autocompletion.
func Completion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for balena.

To load completions:

Bash:
  $ source <(balena completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ balena completion bash > /etc/bash_completion.d/balena
  # macOS:
  $ balena completion bash > $(brew --prefix)/etc/bash_completion.d/balena

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ balena completion zsh > "${fpath[1]}/_balena"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ balena completion fish | source
  # To load completions for each session, execute once:
  $ balena completion fish > ~/.config/fish/completions/balena.fish

PowerShell:
  PS> balena completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> balena completion powershell > balena.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
