package dashboard

import (
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/HamzaaAkmal/Get-Opinion/internal/storage"
)

// StartServer renders the latest saved run at /. The dashboard only reads
// run artifacts; it never triggers fetching.
func StartServer(runFile string, port string) error {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		result, err := storage.LoadRunResult(runFile)
		if err != nil {
			http.Error(w, "no run data yet", http.StatusNotFound)
			return
		}

		// 1. Source dominance
		pie := charts.NewPie()
		pie.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Source Dominance"}),
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		)

		var pieItems []opts.PieData
		for src, n := range result.BySource {
			pieItems = append(pieItems, opts.PieData{Name: string(src), Value: n})
		}
		pie.AddSeries("Comments", pieItems)

		// 2. Variant yield
		bar := charts.NewBar()
		bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Comments per Query Variant"}))

		var barX []string
		var barY []opts.BarData
		for _, v := range result.Variants {
			barX = append(barX, v)
			barY = append(barY, opts.BarData{Value: result.ByVariant[v]})
		}
		bar.SetXAxis(barX).AddSeries("Accepted", barY)

		pie.Render(w)
		bar.Render(w)
	})

	return http.ListenAndServe(":"+port, nil)
}
