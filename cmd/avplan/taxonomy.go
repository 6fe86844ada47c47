package main

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"avplan/internal/taxonomy"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the effective device and cable taxonomy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tax, err := taxonomy.Load(cfg.Taxonomy.Path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		devices := tablewriter.NewWriter(out)
		devices.SetHeader([]string{"Abbreviation", "Device Type"})
		for _, e := range tax.Entries() {
			devices.Append([]string{e.Abbreviation, e.Type})
		}
		devices.Render()
		fmt.Fprintln(out)

		signals := make([]string, 0, len(tax.Cables))
		for s := range tax.Cables {
			signals = append(signals, s)
		}
		sort.Strings(signals)
		cables := tablewriter.NewWriter(out)
		cables.SetHeader([]string{"Signal Type", "Recommended Cable"})
		for _, s := range signals {
			cables.Append([]string{s, tax.Cables[s]})
		}
		cables.Render()
		return nil
	},
}
