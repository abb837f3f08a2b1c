// Package report renders evaluation results and stored routes as tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"triarb/internal/evaluate"
	"triarb/internal/model"
	"triarb/internal/numeric"
)

const amountPlaces = 8

// Opportunities writes the accepted routes, at most top rows when top > 0.
func Opportunities(w io.Writer, opportunities []evaluate.Opportunity, top int) {
	if len(opportunities) == 0 {
		fmt.Fprintln(w, "no profitable routes")
		return
	}
	rows := opportunities
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	table := newTable(w)
	table.SetHeader([]string{"#", "Route", "Legs", "Pools", "Start", "Final", "Profit", "Profit %"})
	for i, opp := range rows {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			opp.Route.Description(),
			strings.Join(opp.Legs, ", "),
			strings.Join(opp.Pools, " "),
			numeric.Round(opp.StartAmount, amountPlaces) + " " + opp.StartToken,
			numeric.Round(opp.FinalAmount, amountPlaces),
			numeric.Round(opp.Profit, amountPlaces),
			numeric.Round(opp.ProfitPercent, 4),
		})
	}
	table.Render()
	if len(rows) < len(opportunities) {
		fmt.Fprintf(w, "showing %d of %d profitable routes\n", len(rows), len(opportunities))
	}
}

// Rejections writes rejection counts sorted by reason.
func Rejections(w io.Writer, rejected map[evaluate.Rejection]int) {
	if len(rejected) == 0 {
		return
	}
	reasons := make([]string, 0, len(rejected))
	for reason := range rejected {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)

	table := newTable(w)
	table.SetHeader([]string{"Rejection", "Routes"})
	for _, reason := range reasons {
		table.Append([]string{reason, fmt.Sprintf("%d", rejected[evaluate.Rejection(reason)])})
	}
	table.Render()
}

// Routes writes persisted routes with their pools and fee tiers.
func Routes(w io.Writer, routes []model.TriadRoute) {
	if len(routes) == 0 {
		fmt.Fprintln(w, "no stored routes")
		return
	}
	table := newTable(w)
	table.SetHeader([]string{"#", "Route", "Fees %", "Pools"})
	for i, route := range routes {
		fees := make([]string, 0, len(route.Legs))
		pools := make([]string, 0, len(route.Legs))
		for _, leg := range route.Legs {
			fees = append(fees, numeric.FeePercent(leg.Fee))
			pools = append(pools, evaluate.ShortAddress(leg.Pool))
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			route.Description(),
			strings.Join(fees, " / "),
			strings.Join(pools, " "),
		})
	}
	table.Render()
}

// Pools writes the discovered pool registry.
func Pools(w io.Writer, pools []model.Pool) {
	if len(pools) == 0 {
		fmt.Fprintln(w, "no stored pools")
		return
	}
	table := newTable(w)
	table.SetHeader([]string{"Pool", "Token0", "Token1", "Fee %"})
	for _, pool := range pools {
		table.Append([]string{
			pool.Address.Hex(),
			pool.Token0.Symbol,
			pool.Token1.Symbol,
			numeric.FeePercent(pool.Fee),
		})
	}
	table.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
