package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sdejongh/sigrename/pkg/heuristic"
	"github.com/sdejongh/sigrename/pkg/signature"
)

// NewFormatsCommand creates the formats command
func NewFormatsCommand() *cobra.Command {
	var rules bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the signatures used for detection",
		Long: `Print the signature table in match order. The first entry that matches
a file wins, so more specific signatures come before generic ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rules {
				return writeZipRules(cmd.OutOrStdout())
			}
			return writeFormats(cmd.OutOrStdout(), signature.DefaultTable())
		},
	}

	cmd.Flags().BoolVar(&rules, "zip-rules", false, "list the rules that refine zip containers instead")

	return cmd
}

func writeFormats(w io.Writer, table *signature.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tFORMAT\tEXT\tSIGNATURE\tDESCRIPTION\n")

	for i, e := range table.Entries() {
		f, _ := signature.Lookup(e.Format)
		sig := strings.TrimSpace(strings.TrimPrefix(e.String(), e.Format))
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, e.Format, f.Ext, sig, f.Description)
	}

	return tw.Flush()
}

func writeZipRules(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FORMAT\tEXT\tREQUIRES\n")

	for _, r := range heuristic.DefaultZipRules() {
		f, _ := signature.Lookup(r.Format)
		var markers []string
		for _, m := range r.Markers {
			markers = append(markers, m.String())
		}
		if r.Mimetype != "" {
			markers = append(markers, "mimetype="+r.Mimetype)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Format, f.Ext, strings.Join(markers, ", "))
	}

	return tw.Flush()
}
