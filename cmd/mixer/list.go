package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vmorsell/app-mixer/pkg/model"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List audio sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions := controller.ListSessions()
		if listJSON {
			return writeJSON(cmd.OutOrStdout(), sessions)
		}
		return writeTable(cmd.OutOrStdout(), sessions)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print sessions as JSON")
}

func writeJSON(w io.Writer, sessions []model.AudioSession) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sessions)
}

func writeTable(w io.Writer, sessions []model.AudioSession) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVOLUME\tMUTED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\n", s.ID, s.Name, s.Volume, yesNo(s.Muted))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
