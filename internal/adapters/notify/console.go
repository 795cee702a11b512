package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/forecaster/internal/domain"
	"github.com/alejandrodnm/forecaster/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
}

var _ ports.Reporter = (*Console)(nil)

// NewConsole crea un reporter que escribe a stdout.
// table=false imprime una línea compacta por resultado.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// ReportTraining imprime el modelo ganador y su calidad.
func (c *Console) ReportTraining(_ context.Context, run domain.TrainingRun) error {
	m := run.Metadata
	if !c.table {
		fmt.Fprintf(c.out, "[%s] %s trained w=%d h=%d sl=%d MAE=%.4f MSE=%.4f MFE=%.4f cells=%d/%d (%s)\n",
			run.TrainedAt.Format("15:04:05"), run.Symbol,
			m.WindowSize, m.Horizon, m.SeriesLength,
			m.MeanAbsoluteError, m.MeanSquaredError, m.MeanForecastError,
			run.CellsEvaluated-run.CellsFailed, run.CellsEvaluated,
			run.Duration.Round(time.Millisecond))
		return nil
	}

	fmt.Fprintf(c.out, "\n=== TRAINING — %s ===\n", run.Symbol)
	table := tablewriter.NewWriter(c.out)
	table.Header("Param", "Value")
	table.Append("Trained from", m.TrainedFromDate.Format(domain.DateLayout))
	table.Append("Trained to", m.TrainedToDate.Format(domain.DateLayout))
	table.Append("Window size", fmt.Sprintf("%d", m.WindowSize))
	table.Append("Horizon", fmt.Sprintf("%d", m.Horizon))
	table.Append("Series length", fmt.Sprintf("%d", m.SeriesLength))
	table.Append("MAE", fmt.Sprintf("%.4f", m.MeanAbsoluteError))
	table.Append("MSE", fmt.Sprintf("%.4f", m.MeanSquaredError))
	table.Append("MFE (bias)", fmt.Sprintf("%.4f", m.MeanForecastError))
	table.Append("Cells ok/total", fmt.Sprintf("%d/%d", run.CellsEvaluated-run.CellsFailed, run.CellsEvaluated))
	table.Append("Duration", run.Duration.Round(time.Millisecond).String())
	table.Render()

	fmt.Fprintf(c.out, "  Model: %s\n", run.ModelPath)
	fmt.Fprintf(c.out, "  Bias: %s\n\n", biasLabel(m.MeanForecastError))
	return nil
}

// ReportPrediction imprime los puntos de forecast de una predicción.
func (c *Console) ReportPrediction(_ context.Context, symbol string, result domain.PredictionResult) error {
	if len(result.Points) == 0 {
		fmt.Fprintf(c.out, "[%s] %s no forecast points\n", time.Now().Format("15:04:05"), symbol)
		return nil
	}

	if !c.table {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %s +%d obs →", time.Now().Format("15:04:05"), symbol, len(result.NewObservations))
		for _, p := range result.Points {
			fmt.Fprintf(&sb, " %s:%.2f±%.2f", p.Date.Format("01-02"), p.Forecast, p.BoundsDifference)
		}
		fmt.Fprintln(c.out, sb.String())
		return nil
	}

	fmt.Fprintf(c.out, "\n=== FORECAST — %s (model trained to %s, +%d new obs) ===\n",
		symbol, result.TrainedToDate.Format(domain.DateLayout), len(result.NewObservations))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Date", "Forecast", "Lower", "Upper", "±")
	for i, p := range result.Points {
		table.Append(
			fmt.Sprintf("%d", i+1),
			p.Date.Format(domain.DateLayout),
			fmt.Sprintf("%.4f", p.Forecast),
			fmt.Sprintf("%.4f", p.LowerBound),
			fmt.Sprintf("%.4f", p.UpperBound),
			fmt.Sprintf("%.4f", p.BoundsDifference),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "  Model MAE: %.4f  MSE: %.4f  (w=%d h=%d)\n\n",
		result.Metadata.MeanAbsoluteError, result.Metadata.MeanSquaredError,
		result.Metadata.WindowSize, result.Metadata.Horizon)
	return nil
}

// ReportHistory imprime el histórico de entrenamientos.
func (c *Console) ReportHistory(_ context.Context, runs []domain.TrainingRun) error {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No training runs recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Trained at", "Symbol", "To date", "W", "H", "MAE", "MSE", "Cells", "Run ID")
	for i, r := range runs {
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.TrainedAt.Local().Format("2006-01-02 15:04"),
			r.Symbol,
			r.Metadata.TrainedToDate.Format(domain.DateLayout),
			fmt.Sprintf("%d", r.Metadata.WindowSize),
			fmt.Sprintf("%d", r.Metadata.Horizon),
			fmt.Sprintf("%.4f", r.Metadata.MeanAbsoluteError),
			fmt.Sprintf("%.4f", r.Metadata.MeanSquaredError),
			fmt.Sprintf("%d/%d", r.CellsEvaluated-r.CellsFailed, r.CellsEvaluated),
			shortID(r.ID),
		)
	}
	table.Render()
	return nil
}

// --- helpers ---

func biasLabel(mfe float64) string {
	switch {
	case mfe > 0:
		return fmt.Sprintf("under-forecast (%.4f)", mfe)
	case mfe < 0:
		return fmt.Sprintf("over-forecast (%.4f)", mfe)
	default:
		return "none"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
