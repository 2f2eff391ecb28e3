package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagStoreJSON bool

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the API snapshot store",
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show snapshot store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		st, err := openStore(cfg)
		if err != nil {
			fail(err)
			return nil
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("reading store stats: %w", err))
			return nil
		}
		if flagStoreJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(data))
			return nil
		}

		fmt.Fprintf(os.Stdout, "Store: %s\n", stats.Dir)
		fmt.Fprintf(os.Stdout, "Entries: %d (%d bytes)\n", stats.Entries, stats.TotalBytes)
		for _, name := range stats.CategoryNames() {
			fmt.Fprintf(os.Stdout, "  %-10s %d\n", name, stats.Categories[name])
		}
		return nil
	},
}

var storeClearCmd = &cobra.Command{
	Use:   "clear [category]",
	Short: "Delete the stored snapshot of one category, or of all categories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		st, err := openStore(cfg)
		if err != nil {
			fail(err)
			return nil
		}
		defer st.Close()

		category := ""
		if len(args) == 1 {
			category = args[0]
		}
		n, err := st.Clear(ctx, category)
		if err != nil {
			fail(fmt.Errorf("clearing store: %w", err))
			return nil
		}
		if category == "" {
			fmt.Fprintf(os.Stdout, "Store cleared (%d entries).\n", n)
		} else {
			fmt.Fprintf(os.Stdout, "Cleared %s (%d entries).\n", category, n)
		}
		return nil
	},
}

func init() {
	storeShowCmd.Flags().BoolVar(&flagStoreJSON, "json", false, "Print statistics as JSON")
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeClearCmd)
}
