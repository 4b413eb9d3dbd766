package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"
	"till-bot/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// NoMovementsMessage is the report of an empty ledger.
const NoMovementsMessage = "No movements recorded."

const reportTimeLayout = "2006-01-02 15:04"

// Aggregate row labels of the export table.
const (
	RowTotalCredits     = "total_credits"
	RowTotalDebits      = "total_debits"
	RowTotalCommissions = "total_commissions"
	RowNetBalance       = "net_balance"
)

// ExportHeader is the first row of every export table.
var ExportHeader = []string{"index", "recorded_at", "actor", "kind", "amount", "signed_amount"}

// ReportServiceImpl implements ports.ReportService.
type ReportServiceImpl struct {
	currency      string
	exporters     map[string]ports.TableExporter
	archiveDir    string
	archiveFormat string
	log           zerolog.Logger
}

// NewReportService creates a report service. Closing statements are archived
// to archiveDir in archiveFormat; an empty archiveDir disables archiving.
func NewReportService(currency, archiveDir, archiveFormat string, log zerolog.Logger, exporters ...ports.TableExporter) *ReportServiceImpl {
	byFormat := make(map[string]ports.TableExporter, len(exporters))
	for _, e := range exporters {
		byFormat[e.Format()] = e
	}
	return &ReportServiceImpl{
		currency:      currency,
		exporters:     byFormat,
		archiveDir:    archiveDir,
		archiveFormat: strings.ToLower(archiveFormat),
		log:           log,
	}
}

// Report renders the movements and totals of s as chat text.
func (s *ReportServiceImpl) Report(snap *domain.Snapshot) string {
	if snap == nil || snap.IsEmpty() {
		return NoMovementsMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Till statement, %d movement%s\n", len(snap.Movements), plural(len(snap.Movements)))
	for i, m := range snap.Movements {
		fmt.Fprintf(&b, "%d. %s %s %s %s\n",
			i+1,
			m.RecordedAt.UTC().Format(reportTimeLayout),
			m.Actor,
			m.Kind,
			domain.FormatSigned(m.Signed()),
		)
	}
	b.WriteString("\n")
	b.WriteString(s.totalsText(snap.Totals))
	return b.String()
}

// BalanceText renders the reply to a balance query.
func (s *ReportServiceImpl) BalanceText(t domain.Totals) string {
	return fmt.Sprintf("Balance: %s (%d movement%s)", s.money(t.Net), t.Count, plural(t.Count))
}

// ExportTable renders s as rows: header, one row per movement, then the
// aggregate rows.
func (s *ReportServiceImpl) ExportTable(snap *domain.Snapshot) [][]string {
	if snap == nil {
		snap = domain.NewSnapshot(nil, time.Now())
	}

	table := make([][]string, 0, len(snap.Movements)+5)
	table = append(table, append([]string(nil), ExportHeader...))
	for i, m := range snap.Movements {
		table = append(table, []string{
			strconv.Itoa(i + 1),
			m.RecordedAt.UTC().Format(time.RFC3339),
			m.Actor,
			string(m.Kind),
			domain.FormatAmount(m.Amount),
			domain.FormatSigned(m.Signed()),
		})
	}

	t := snap.Totals
	table = append(table,
		aggregateRow(RowTotalCredits, domain.FormatAmount(t.Credits)),
		aggregateRow(RowTotalDebits, domain.FormatAmount(t.Debits)),
		aggregateRow(RowTotalCommissions, domain.FormatAmount(t.Commissions)),
		aggregateRow(RowNetBalance, domain.FormatAmount(t.Net)),
	)
	return table
}

// Export renders the export table of s with the exporter for format.
func (s *ReportServiceImpl) Export(snap *domain.Snapshot, format string) (*ports.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported export format %q", format))
	}
	if snap == nil {
		snap = domain.NewSnapshot(nil, time.Now())
	}

	title := "Till statement " + snap.TakenAt.UTC().Format(reportTimeLayout)
	body, err := exporter.Render(title, s.ExportTable(snap))
	if err != nil {
		return nil, apperror.ErrExportFailure(fmt.Errorf("render %s: %w", format, err))
	}

	return &ports.ExportFile{
		Filename:    fmt.Sprintf("till-%s.%s", snap.TakenAt.UTC().Format("20060102-150405"), format),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

// Archive writes the closing statement of s to the archive directory.
func (s *ReportServiceImpl) Archive(snap *domain.Snapshot) (string, error) {
	if s.archiveDir == "" {
		return "", nil
	}
	if snap == nil {
		snap = domain.NewSnapshot(nil, time.Now())
	}
	file, err := s.Export(snap, s.archiveFormat)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.archiveDir, 0o750); err != nil {
		return "", apperror.ErrExportFailure(fmt.Errorf("create archive dir: %w", err))
	}

	path := filepath.Join(s.archiveDir, file.Filename)
	if err := os.WriteFile(path, file.Body, 0o640); err != nil {
		return "", apperror.ErrExportFailure(fmt.Errorf("write archive: %w", err))
	}

	s.log.Info().Str("path", path).Int("movements", len(snap.Movements)).Msg("statement archived")
	return path, nil
}

func (s *ReportServiceImpl) totalsText(t domain.Totals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total credits: %s\n", s.money(t.Credits))
	fmt.Fprintf(&b, "Total debits: %s\n", s.money(t.Debits))
	fmt.Fprintf(&b, "Total commissions (deducted): %s\n", s.money(t.Commissions))
	fmt.Fprintf(&b, "Balance: %s", s.money(t.Net))
	return b.String()
}

func (s *ReportServiceImpl) money(v decimal.Decimal) string {
	if s.currency == "" {
		return domain.FormatAmount(v)
	}
	return domain.FormatAmount(v) + " " + s.currency
}

func aggregateRow(label, value string) []string {
	return []string{label, "", "", "", value, ""}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
