package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/apigate/internal/apidb"
	"github.com/dshills/apigate/internal/output"
)

// Output flags
var (
	flagFormat       string
	flagOut          string
	flagCategory     string
	flagFailOnPublic bool
)

func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format ("+formats+")")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["report.format"] = flagFormat
	}
	return m
}

var compareCmd = &cobra.Command{
	Use:   "compare <old.json> <new.json> | compare --category <name> <new.json>",
	Short: "Compare two API snapshots",
	Long: "Classify the API delta between two extracted snapshot files, or between a snapshot " +
		"file and the stored snapshot of --category.",
	Args: func(cmd *cobra.Command, args []string) error {
		want := 2
		if flagCategory != "" {
			want = 1
		}
		if len(args) != want {
			return fmt.Errorf("accepts %d snapshot file(s), received %d", want, len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}

		var from *apidb.Snapshot
		newPath := args[len(args)-1]
		if flagCategory != "" {
			ctx, cancel := commandContext()
			defer cancel()
			st, err := openStore(cfg)
			if err != nil {
				fail(err)
				return nil
			}
			defer st.Close()
			from, err = st.Query(ctx, flagCategory)
			if err != nil {
				fail(err)
				return nil
			}
		} else {
			from, err = apidb.LoadSnapshotFile(args[0])
			if err != nil {
				fail(err)
				return nil
			}
		}

		to, err := apidb.LoadSnapshotFile(newPath)
		if err != nil {
			fail(err)
			return nil
		}
		res, err := apidb.Compare(from, to)
		if err != nil {
			fail(err)
			return nil
		}

		c := &output.Comparison{Category: flagCategory, Result: res, Report: cfg.Report.Config}
		if err := output.WriteComparison(c, strings.ToLower(cfg.Report.Format), flagOut); err != nil {
			fail(err)
			return nil
		}

		if flagFailOnPublic && res.PublicAPIChanged() {
			exitCode = ExitFindings
		}
		return nil
	},
}

func init() {
	addOutputFlags(compareCmd, "text, markdown, json")
	compareCmd.Flags().StringVar(&flagCategory, "category", "", "Compare against the stored snapshot of this category")
	compareCmd.Flags().BoolVar(&flagFailOnPublic, "fail-on-public", false, "Exit 1 when public API changed")
}
