package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/nychvs-cli/internal/analysis"
	"github.com/KaramelBytes/nychvs-cli/internal/table"
	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

var (
	insOutputPath string
	insDelimiter  string
	insThousands  string
	insSampleRows int
	insSheetName  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print shape, columns, head and tail of one extract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := table.LoadOptions{Sheet: insSheetName}
		switch insDelimiter {
		case "":
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", insDelimiter)
		}
		switch strings.ToLower(strings.TrimSpace(insThousands)) {
		case "":
			if cfg != nil {
				opt.Thousands = cfg.Thousands()
			}
		case ",":
			opt.Thousands = ','
		case ".":
			opt.Thousands = '.'
		case "space", " ":
			opt.Thousands = ' '
		default:
			return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", insThousands)
		}
		if opt.Sheet == "" && cfg != nil {
			opt.Sheet = cfg.Sheet
		}

		t, err := table.LoadFile(args[0], opt)
		if err != nil {
			return err
		}
		md := analysis.NewProfile(t, insSampleRows).Markdown()

		if insOutputPath != "" {
			if err := utils.SafeWriteFile(insOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote profile to %s\n", okMark, insOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	inspectCmd.Flags().StringVar(&insDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	inspectCmd.Flags().StringVar(&insThousands, "thousands", "", "thousands separator: ','|'.'|'space' (config if omitted)")
	inspectCmd.Flags().IntVar(&insSampleRows, "rows", 5, "number of head and tail rows to include")
	inspectCmd.Flags().StringVar(&insSheetName, "sheet-name", "", "XLSX: sheet name to read")
}
