package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"geotrace/internal/models"
)

// ErrNoLatency is returned when no hop of a run has RTT samples
var ErrNoLatency = errors.New("no hop with latency samples")

// RenderLatencyChart draws the average RTT of every hop as a PNG bar chart
func RenderLatencyChart(w io.Writer, summary models.TraceSummary, hops []models.HopRecord) error {
	var bars []chart.Value
	var maxRTT float64

	for _, h := range hops {
		avg, ok := h.AverageRTT()
		if !ok {
			continue
		}
		bars = append(bars, chart.Value{
			Label: strconv.Itoa(h.HopNumber),
			Value: avg,
			Style: chart.Style{
				FillColor:   barColor(h),
				StrokeColor: barColor(h),
			},
		})
		if avg > maxRTT {
			maxRTT = avg
		}
	}
	if len(bars) == 0 {
		return ErrNoLatency
	}
	if maxRTT == 0 {
		maxRTT = 1
	}

	graph := chart.BarChart{
		Title: fmt.Sprintf("Hop Latency - %s", summary.Target),
		TitleStyle: chart.Style{
			FontSize: 16,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:    1200,
		Height:   400,
		BarWidth: 30,
		XAxis: chart.Style{
			StrokeColor: drawing.ColorBlack,
			FontSize:    10,
		},
		YAxis: chart.YAxis{
			Name: "Latency (ms)",
			Style: chart.Style{
				StrokeColor: drawing.ColorBlack,
				FontSize:    10,
			},
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: maxRTT * 1.1,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: drawing.Color{R: 200, G: 200, B: 200, A: 255},
				StrokeWidth: 1.0,
			},
		},
		Bars: bars,
	}

	return graph.Render(chart.PNG, w)
}

// barColor highlights hops that reported an error
func barColor(h models.HopRecord) drawing.Color {
	if h.Error != "" {
		return drawing.Color{R: 220, G: 60, B: 60, A: 255}
	}
	return chart.GetDefaultColor(0)
}

func (g *Generator) generateLatencyChart(outputDir string, summary models.TraceSummary, hops []models.HopRecord) error {
	filename := filepath.Join(outputDir, "latency.png")
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := RenderLatencyChart(file, summary, hops); err != nil {
		file.Close()
		os.Remove(filename)
		return err
	}
	return file.Close()
}
