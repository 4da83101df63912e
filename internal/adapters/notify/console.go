package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.ResultSink imprimiendo el reporte en la terminal.
type Console struct {
	out    io.Writer
	trades bool // incluir las tablas de trades individuales y P&L diario
}

// NewConsole crea un sink que escribe a stdout.
func NewConsole(withTrades bool) *Console {
	return &Console{out: os.Stdout, trades: withTrades}
}

// NewConsoleWriter crea un sink para tests.
func NewConsoleWriter(w io.Writer, withTrades bool) *Console {
	return &Console{out: w, trades: withTrades}
}

// Publish imprime el reporte completo del backtest.
func (c *Console) Publish(_ context.Context, r *domain.Report) error {
	c.printHeader(r)

	if r.Metrics.TotalTrades == 0 {
		fmt.Fprintln(c.out, "  No trades were opened in this range.")
		fmt.Fprintln(c.out, "  Loosen the entry bands or the market filters and try again.")
		fmt.Fprintln(c.out)
		return nil
	}

	c.printMetrics(r)
	c.printBySide(r)
	c.printExits(r)
	if c.trades {
		c.printTrades(r)
		c.printDaily(r)
	}
	c.printVerdict(r)
	return nil
}

// printHeader imprime el banner con el rango y el resultado de capital.
func (c *Console) printHeader(r *domain.Report) {
	fmt.Fprintf(c.out, "\n")
	fmt.Fprintf(c.out, "========================================================\n")
	fmt.Fprintf(c.out, "  BACKTEST REPORT: %s\n", r.Strategy.Name)
	fmt.Fprintf(c.out, "  %s to %s (%s candles)\n",
		r.Strategy.StartDate.Format("2006-01-02"),
		r.Strategy.EndDate.Format("2006-01-02"),
		intervalLabel(r.Strategy.Interval))
	fmt.Fprintf(c.out, "========================================================\n\n")

	fmt.Fprintf(c.out, "  Markets:  %d analyzed, %d traded\n", r.MarketsAnalyzed, r.MarketsTraded)
	fmt.Fprintf(c.out, "  Capital:  $%.2f -> $%.2f (%+.2f%%)\n\n",
		r.StartingCapital, r.EndingCapital, r.Metrics.TotalPnLPct)
}

// printMetrics imprime los agregados principales en líneas alineadas.
func (c *Console) printMetrics(r *domain.Report) {
	m := r.Metrics

	fmt.Fprintf(c.out, "  --- METRICS ---\n")
	fmt.Fprintf(c.out, "  Total trades:    %d (%d W / %d L / %d BE)\n",
		m.TotalTrades, m.Wins, m.Losses, m.BreakEvens)
	fmt.Fprintf(c.out, "  Win rate:        %.1f%%\n", m.WinRate)
	fmt.Fprintf(c.out, "  Total P&L:       $%.2f (%+.2f%%)\n", m.TotalPnL, m.TotalPnLPct)
	fmt.Fprintf(c.out, "  Fees paid:       $%.2f\n", m.TotalFees)
	fmt.Fprintf(c.out, "  Avg win / loss:  $%.2f / $%.2f\n", m.AvgWin, m.AvgLoss)
	fmt.Fprintf(c.out, "  Profit factor:   %.2f\n", m.ProfitFactor)
	fmt.Fprintf(c.out, "  Max drawdown:    %.1f%%\n", m.MaxDrawdown)
	fmt.Fprintf(c.out, "  Sharpe ratio:    %.2f\n", m.SharpeRatio)
	fmt.Fprintf(c.out, "  Best / worst:    $%.2f / $%.2f\n", m.BestTrade, m.WorstTrade)
	fmt.Fprintf(c.out, "  Streaks:         %d wins, %d losses\n", m.LongestWinStreak, m.LongestLossStreak)
	fmt.Fprintf(c.out, "  Avg hold:        %.1fh\n\n", m.AvgHoldHours)
}

// printBySide imprime la partición YES/NO.
func (c *Console) printBySide(r *domain.Report) {
	if len(r.Metrics.BySide) == 0 {
		return
	}

	fmt.Fprintf(c.out, "  --- BY SIDE ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Side", "Trades", "Wins", "Losses", "Win rate", "PnL", "Avg PnL")
	for _, s := range r.Metrics.BySide {
		table.Append(
			string(s.Side),
			fmt.Sprintf("%d", s.Trades),
			fmt.Sprintf("%d", s.Wins),
			fmt.Sprintf("%d", s.Losses),
			fmt.Sprintf("%.1f%%", s.WinRate),
			fmt.Sprintf("$%.2f", s.PnL),
			fmt.Sprintf("$%.2f", s.AvgPnL),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// printExits imprime el desglose por motivo de salida.
func (c *Console) printExits(r *domain.Report) {
	if len(r.Metrics.ExitBreakdown) == 0 {
		return
	}

	fmt.Fprintf(c.out, "  --- EXITS ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Reason", "Count", "PnL")
	for _, e := range r.Metrics.ExitBreakdown {
		table.Append(
			string(e.Reason),
			fmt.Sprintf("%d", e.Count),
			fmt.Sprintf("$%.2f", e.PnL),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// printTrades imprime la tabla de trades individuales (parciales incluidas).
func (c *Console) printTrades(r *domain.Report) {
	fmt.Fprintf(c.out, "  --- TRADES ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Side", "Entry", "Exit", "Shares", "PnL", "PnL%", "Reason")

	for i, tr := range r.Trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateQuestion(tr.Question, tr.MarketID, 30),
			string(tr.Side),
			fmt.Sprintf("%s @%.3f", tr.EntryTime.Format("01-02 15:04"), tr.EntryPrice),
			fmt.Sprintf("%s @%.3f", tr.ExitTime.Format("01-02 15:04"), tr.ExitPrice),
			fmt.Sprintf("%.1f", tr.Shares),
			fmt.Sprintf("$%.2f", tr.PnL),
			fmt.Sprintf("%+.1f%%", tr.PnLPct),
			string(tr.ExitReason),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// printDaily imprime el P&L neto por día.
func (c *Console) printDaily(r *domain.Report) {
	if len(r.DailyPnL) == 0 {
		return
	}

	fmt.Fprintf(c.out, "  --- DAILY P&L ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Net PnL")
	for _, d := range r.DailyPnL {
		table.Append(
			d.Date.Format("2006-01-02"),
			fmt.Sprintf("$%.2f", d.PnL),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// printVerdict imprime la valoración final.
func (c *Console) printVerdict(r *domain.Report) {
	m := r.Metrics

	fmt.Fprintf(c.out, "  --- VERDICT ---\n")
	switch {
	case m.TotalPnL > 0 && m.SharpeRatio >= 1:
		fmt.Fprintf(c.out, "  POSITIVE: net profitable with decent risk-adjusted returns.\n")
	case m.TotalPnL > 0:
		fmt.Fprintf(c.out, "  MARGINAL: net profitable but volatile (Sharpe %.2f).\n", m.SharpeRatio)
	default:
		fmt.Fprintf(c.out, "  NEGATIVE: the strategy loses money over this range.\n")
	}
	if m.MaxDrawdown > 20 {
		fmt.Fprintf(c.out, "  WARNING: max drawdown %.1f%%, sizing may be too aggressive.\n", m.MaxDrawdown)
	}
	fmt.Fprintln(c.out)
}

// PrintHistory imprime el listado de ejecuciones persistidas.
func (c *Console) PrintHistory(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No saved runs yet. Run a backtest first.")
		return
	}

	fmt.Fprintf(c.out, "\n  --- RUN HISTORY (%d) ---\n", len(runs))
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Strategy", "When", "Range", "Trades", "Win rate", "PnL", "Max DD", "Sharpe")

	for _, r := range runs {
		table.Append(
			shortID(r.ID),
			r.Strategy,
			r.CreatedAt.Format("01-02 15:04"),
			fmt.Sprintf("%s..%s", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02")),
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%.1f%%", r.WinRate),
			fmt.Sprintf("$%.2f", r.TotalPnL),
			fmt.Sprintf("%.1f%%", r.MaxDrawdown),
			fmt.Sprintf("%.2f", r.SharpeRatio),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// --- helpers ---

func intervalLabel(i domain.Interval) string {
	switch i {
	case domain.Interval1m:
		return "1m"
	case domain.Interval1h:
		return "1h"
	case domain.Interval1d:
		return "1d"
	}
	return fmt.Sprintf("%dm", int(i))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
