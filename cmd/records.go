package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/service/analysis"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the suspect records held by the analysis backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := analysis.NewHTTP(cfgSvc).RetrieveRecords(cmd.Context())
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No records found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTHANA\tIMAGE")
		fmt.Fprintln(w, "--\t----\t-----\t-----")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Thana, r.Img)
		}
		return w.Flush()
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a suspect record and its reference image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return xerrors.Errorf("invalid record id %q", args[0])
		}

		if err := analysis.NewHTTP(cfgSvc).DeleteRecord(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Record %d deleted.\n", id)
		return nil
	},
}

func init() {
	recordsCmd.AddCommand(recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}
