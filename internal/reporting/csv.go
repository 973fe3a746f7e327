package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the report buckets as a CSV string, one row per wallet.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("range_key,wallet,bucket_count,bucket_total_sol\n")

	for _, key := range r.RangeKeys() {
		b := r.BuyersBySolRange[key]
		for _, wallet := range b.Wallets {
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%s\n",
				key,
				wallet,
				b.Count,
				b.TotalSol.String(),
			))
		}
	}

	return sb.String()
}
