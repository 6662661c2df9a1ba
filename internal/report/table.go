package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.Bold)
	noneColor   = color.New(color.FgRed)
	goodColor   = color.New(color.FgGreen)
)

// WriteTable prints the report as an aligned terminal table.
func WriteTable(w io.Writer, r Report) {
	mode := "rates"
	if !r.UseRates {
		mode = "counts"
	}
	headerColor.Fprintf(w, "Cutoffs (method=%s, weight=%.2f, %s, n=%d)\n", r.Method, r.Weight, mode, r.Samples)
	fmt.Fprintln(w, strings.Repeat("-", 72))
	headerColor.Fprintf(w, "%-16s %-10s %-10s %-8s %-8s %-8s %s\n", "Class", "Cutoff", "Penalty", "Prec", "Rec", "F1", "TP/FP/FN/TN")

	for _, c := range r.Classes {
		threshold := fmt.Sprintf("%-10.4f", c.Threshold)
		printer := goodColor
		if math.IsInf(c.Threshold, 1) {
			threshold = fmt.Sprintf("%-10s", "none")
			printer = noneColor
		}
		fmt.Fprintf(w, "%-16s ", c.Class)
		printer.Fprint(w, threshold)
		fmt.Fprintf(w, " %-10.4f %-8.2f %-8.2f %-8.2f %d/%d/%d/%d\n",
			c.Penalty, c.Metrics.Precision, c.Metrics.Recall, c.Metrics.F1,
			c.Metrics.TruePositives, c.Metrics.FalsePositives, c.Metrics.FalseNegatives, c.Metrics.TrueNegatives)
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
}
