package cli

import (
	"bufio"
	"fmt"
	"strings"

	"cvforge/internal/common"
	"cvforge/internal/keys"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage per-model API keys",
	Long: `Manage the API keys used for each model family.

Keys are resolved per model in this order: user keys set with this command,
keys from Vault, environment variables (CVFORGE_MODELS_<MODEL>_APIKEY or the
legacy VITE_<MODEL>_API_KEY) and finally the config file. User keys are stored
in a file readable only by you.`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models with their masked key and its source",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if keysConfig.OutputFormat == "" && keysConfig.OutputFile == "" {
			keysConfig.OutputFormat = "text"
		}
		return resolveOutput(cmd, &keysConfig)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore(cmd)
		if err != nil {
			return err
		}
		return common.NewOutputHandler(getLoggerFromContext(cmd.Context())).HandleOutput(store.List(), keysConfig)
	},
}

var keysSetCmd = &cobra.Command{
	Use:   "set <model> [key]",
	Short: "Store a user key for a model",
	Long: `Store a user key for a model. When the key argument is omitted it is
read from standard input, which keeps it out of the shell history.`,
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeModels,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore(cmd)
		if err != nil {
			return err
		}

		model := types.ModelID(strings.ToLower(args[0]))
		key := ""
		if len(args) == 2 {
			key = args[1]
		} else {
			key, err = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && key == "" {
				return fmt.Errorf("failed to read key from stdin: %w", err)
			}
		}

		if err := store.Set(model, key); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored key for %s: %s\n", model, keys.Mask(strings.TrimSpace(key)))
		return nil
	},
}

var keysRemoveCmd = &cobra.Command{
	Use:               "remove <model>",
	Aliases:           []string{"rm"},
	Short:             "Remove the user key for a model",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeModels,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore(cmd)
		if err != nil {
			return err
		}

		model := types.ModelID(strings.ToLower(args[0]))
		removed, err := store.Remove(model)
		if err != nil {
			return err
		}
		if !removed {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No user key stored for %s\n", model)
			return nil
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed user key for %s\n", model)
		return nil
	},
}

var keysConfig common.CommandConfig

func init() {
	addOutputFlags(keysListCmd, &keysConfig)
	keysCmd.AddCommand(keysListCmd, keysSetCmd, keysRemoveCmd)
}

// openKeyStore opens the store without Vault: the listing shows what this
// machine resolves locally.
func openKeyStore(cmd *cobra.Command) (*keys.Store, error) {
	cfg := getConfigFromContext(cmd.Context())
	return keys.NewStoreFromConfig(cfg, getLoggerFromContext(cmd.Context()))
}

func completeModels(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return modelNames(), cobra.ShellCompDirectiveNoFileComp
}

func modelNames() []string {
	names := make([]string, len(types.KnownModels))
	for i, m := range types.KnownModels {
		names[i] = string(m)
	}
	return names
}
