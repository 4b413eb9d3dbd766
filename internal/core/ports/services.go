package ports

import (
	"context"
	"time"

	"till-bot/internal/core/domain"

	"github.com/shopspring/decimal"
)

// --- Service Ports (Business Logic) ---

// LedgerService is the ledger engine: running balance plus ordered movements.
type LedgerService interface {
	// Record parses rawAmount and appends a movement of kind for actor.
	Record(ctx context.Context, actor string, kind domain.MovementKind, rawAmount string) (*Receipt, error)
	// Balance returns the exact running balance.
	Balance(ctx context.Context) decimal.Decimal
	// Snapshot returns a read-only copy of the current ledger.
	Snapshot(ctx context.Context) *domain.Snapshot
	// UndoLast removes the most recent movement, or the most recent one of
	// actor when actor is non-empty.
	UndoLast(ctx context.Context, actor string) (*Receipt, error)
	// Reset snapshots and clears the ledger in one step.
	Reset(ctx context.Context, actor string) (*Closing, error)
	// Hydrate rebuilds the in-memory ledger from the movement log.
	Hydrate(ctx context.Context) error
}

// Receipt describes a recorded or removed movement.
type Receipt struct {
	Movement  domain.Movement
	Balance   decimal.Decimal
	Persisted bool // false when the movement log write failed
}

// Closing is the result of close-and-reset.
type Closing struct {
	Snapshot  *domain.Snapshot
	Persisted bool
}

// OperatorService is the operator registry and the authorization gate.
type OperatorService interface {
	// Authorize reports whether any of the caller's identifiers is an operator.
	Authorize(ctx context.Context, callerIDs ...string) bool
	// AddOperator returns the normalized id and false if it was already present.
	AddOperator(ctx context.Context, rawID string) (string, bool, error)
	// RemoveOperator returns the normalized id and false if it was not present.
	RemoveOperator(ctx context.Context, rawID string) (string, bool, error)
	List(ctx context.Context) []string
	// Load fills the registry from the repository and seeds initialID.
	Load(ctx context.Context, initialID string) error
}

// ReportService renders ledger snapshots.
type ReportService interface {
	Report(s *domain.Snapshot) string
	ExportTable(s *domain.Snapshot) [][]string
	BalanceText(t domain.Totals) string
	// Export renders the export table in format ("csv" or "pdf").
	Export(s *domain.Snapshot, format string) (*ExportFile, error)
	// Archive writes the export of s to the configured archive directory and
	// returns the file path. It returns "" when archiving is disabled.
	Archive(s *domain.Snapshot) (string, error)
}

// ExportFile is a rendered statement.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TableExporter renders an export table into a file format.
type TableExporter interface {
	Format() string
	ContentType() string
	Render(title string, table [][]string) ([]byte, error)
}

// AuditService records audited commands.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// TokenService issues read-only dashboard tokens to operators.
type TokenService interface {
	Generate(operatorID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	OperatorID string
}

// InboundMessage is a chat message addressed to the bot.
type InboundMessage struct {
	UpdateID int64
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

// CommandDispatcher turns an inbound chat message into reply text.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg InboundMessage) string
}

// MessageSender posts chat messages through the Bot API. It is used for
// replies too long to fit in the webhook answer.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
}
