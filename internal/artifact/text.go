package artifact

import (
	"strings"

	"github.com/olekukonko/tablewriter"
)

// renderText draws the table as fixed-width text for API and CLI responses.
func renderText(t *table) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader(t.Columns)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.AppendBulk(t.Rows)
	tw.Render()
	return b.String()
}
