package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/specialist-recommender/internal/training"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func renderReport(w io.Writer, r *training.Report) {
	fmt.Fprintf(w, "Published version %s (%s)\n", r.Version, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Samples: %d used, %d skipped; train %d, test %d", r.Samples, r.Skipped, r.TrainSamples, r.TestSamples)
	if !r.Stratified {
		fmt.Fprint(w, " (unstratified split)")
	}
	fmt.Fprintf(w, "\nFeatures: %d\nClasses: %s\n\n", r.Features, strings.Join(r.Classes, ", "))

	table := newTable(w, []string{"metric", "value"})
	table.Append([]string{"accuracy", f4(r.Metrics.Accuracy)})
	table.Append([]string{"precision", f4(r.Metrics.Precision)})
	table.Append([]string{"recall", f4(r.Metrics.Recall)})
	table.Append([]string{"f1", f4(r.Metrics.F1)})
	table.Append([]string{"rmse", f4(r.Metrics.RMSE)})
	table.Render()
}

func stat(s training.Stat) string {
	return f4(s.Mean) + " ± " + f4(s.Std)
}

func renderCurve(w io.Writer, points []training.CurvePoint) {
	table := newTable(w, []string{"size", "repeats", "accuracy", "precision", "recall", "f1", "rmse"})
	for _, p := range points {
		table.Append([]string{
			strconv.Itoa(p.Size),
			strconv.Itoa(p.Repeats),
			stat(p.Accuracy),
			stat(p.Precision),
			stat(p.Recall),
			stat(p.F1),
			stat(p.RMSE),
		})
	}
	table.Render()
}

func renderRuns(w io.Writer, runs []training.CurveRun) {
	table := newTable(w, []string{"size", "repeat", "classes", "accuracy", "f1", "rmse"})
	for _, r := range runs {
		table.Append([]string{
			strconv.Itoa(r.Size),
			strconv.Itoa(r.Repeat),
			strconv.Itoa(r.Classes),
			f4(r.Metrics.Accuracy),
			f4(r.Metrics.F1),
			f4(r.Metrics.RMSE),
		})
	}
	table.Render()
}
