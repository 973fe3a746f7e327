package reporting

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Buyer Analysis: %s\n\n", r.Token))
	sb.WriteString(fmt.Sprintf("Snapshot: %s\n\n", r.SnapshotTime))
	sb.WriteString(fmt.Sprintf("Unique buyers: %d | Total buy volume: %s SOL\n\n",
		r.UniqueBuyers, r.TotalBuyVolume.String()))

	sb.WriteString("## Buyers by SOL Range\n\n")
	sb.WriteString("| Range | Buyers | Total SOL |\n")
	sb.WriteString("|-------|--------|-----------|\n")
	for _, key := range r.RangeKeys() {
		b := r.BuyersBySolRange[key]
		sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", key, b.Count, b.TotalSol.String()))
	}
	sb.WriteString("\n")

	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Signatures Seen | %d |\n", r.Run.SignaturesSeen))
	sb.WriteString(fmt.Sprintf("| Swaps Matched | %d |\n", r.Run.SwapsMatched))
	sb.WriteString(fmt.Sprintf("| Not Swap | %d |\n", r.Run.NotSwap))
	sb.WriteString(fmt.Sprintf("| Duplicates | %d |\n", r.Run.Duplicates))
	sb.WriteString(fmt.Sprintf("| Skipped | %d (unparseable %d, failed %d) |\n",
		r.Run.Skipped.Total, r.Run.Skipped.Unparseable, r.Run.Skipped.Failed))
	sb.WriteString("\n")

	return sb.String()
}
