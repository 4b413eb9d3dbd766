package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"till-bot/internal/core/domain"
	"till-bot/internal/core/ports"
	"till-bot/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options tunes the dispatcher.
type Options struct {
	BotName     string
	Currency    string
	OpenBalance bool
	// RateLimit is the number of commands per RateWindow for one caller.
	// Zero disables rate limiting.
	RateLimit  int64
	RateWindow time.Duration
}

// Deps are the collaborators of the dispatcher. Tokens, Audit and Limiter
// may be nil.
type Deps struct {
	Ledger    ports.LedgerService
	Operators ports.OperatorService
	Reports   ports.ReportService
	Tokens    ports.TokenService
	Audit     ports.AuditService
	Limiter   ports.RateLimiter
}

// Dispatcher implements ports.CommandDispatcher.
type Dispatcher struct {
	Deps
	opts Options
	log  zerolog.Logger
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(deps Deps, opts Options, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{Deps: deps, opts: opts, log: log}
}

type caller struct {
	actor string   // display form recorded on movements
	id    string   // normalized operator id
	ids   []string // identifiers checked by the gate
}

func callerOf(msg ports.InboundMessage) caller {
	numeric := ""
	if msg.UserID != 0 {
		numeric = strconv.FormatInt(msg.UserID, 10)
	}
	c := caller{actor: numeric, id: numeric, ids: []string{msg.Username, numeric}}
	if id, err := domain.NormalizeOperatorID(msg.Username); err == nil {
		c.id = id
		c.actor = domain.DisplayOperator(id)
	}
	return c
}

// Dispatch runs the command in msg and returns the reply text. It returns ""
// for messages that are not commands for this bot.
func (d *Dispatcher) Dispatch(ctx context.Context, msg ports.InboundMessage) string {
	cmd, ok := ParseCommand(msg.Text, d.opts.BotName)
	if !ok {
		return ""
	}
	who := callerOf(msg)

	log := d.log.With().Str("command", cmd.Raw).Str("actor", who.actor).Logger()
	if cmd.Name == "" {
		log.Debug().Msg("unknown command")
		return apperror.ErrUnknownCommand(cmd.Raw).Message + "\n\n" + helpText
	}

	if !d.allow(ctx, who) {
		log.Warn().Msg("command rate limited")
		return msgRateLimited
	}

	if requiresOperator(cmd.Name, d.opts.OpenBalance) && !d.Operators.Authorize(ctx, who.ids...) {
		log.Warn().Msg("unauthorized command")
		d.audit(ctx, who, domain.AuditActionDenied, domain.AuditOutcomeRejected, msg.Text, nil)
		return msgUnauthorized
	}

	switch cmd.Name {
	case CmdCredit:
		return d.record(ctx, who, cmd, domain.MovementKindCredit, msg.Text)
	case CmdDebit:
		return d.record(ctx, who, cmd, domain.MovementKindDebit, msg.Text)
	case CmdCommission:
		return d.record(ctx, who, cmd, domain.MovementKindCommission, msg.Text)
	case CmdBalance:
		return d.Reports.BalanceText(d.Ledger.Snapshot(ctx).Totals)
	case CmdReport:
		return d.Reports.Report(d.Ledger.Snapshot(ctx))
	case CmdClose:
		return d.close(ctx, who, msg.Text)
	case CmdUndo:
		return d.undo(ctx, who, "", msg.Text)
	case CmdUndoMine:
		return d.undo(ctx, who, who.actor, msg.Text)
	case CmdAddOperator:
		return d.addOperator(ctx, who, cmd, msg.Text)
	case CmdRemoveOperator:
		return d.removeOperator(ctx, who, cmd, msg.Text)
	case CmdOperators:
		return d.listOperators(ctx)
	case CmdToken:
		return d.issueToken(ctx, who, msg.Text)
	}
	return helpText
}

func (d *Dispatcher) record(ctx context.Context, who caller, cmd Command, kind domain.MovementKind, text string) string {
	if cmd.Args == "" {
		return usage[cmd.Name]
	}
	receipt, err := d.Ledger.Record(ctx, who.actor, kind, cmd.Args)
	if err != nil {
		d.audit(ctx, who, domain.AuditActionRecord, domain.AuditOutcomeRejected, text, map[string]any{"error": err.Error()})
		return d.errorReply(err, cmd.Name)
	}

	d.audit(ctx, who, domain.AuditActionRecord, outcome(receipt.Persisted), text, map[string]any{
		"movement_id": receipt.Movement.ID.String(),
		"kind":        string(kind),
		"amount":      domain.FormatAmount(receipt.Movement.Amount),
	})
	return withWarning(recordReply(who.actor, receipt.Movement, d.money(receipt.Balance)), receipt.Persisted)
}

func (d *Dispatcher) close(ctx context.Context, who caller, text string) string {
	closing, err := d.Ledger.Reset(ctx, who.actor)
	if err != nil {
		return d.errorReply(err, CmdClose)
	}
	snap := closing.Snapshot

	var b strings.Builder
	b.WriteString(d.Reports.Report(snap))
	b.WriteString("\n\nTill closed, balance reset to " + d.money(decimal.Zero) + ".")

	details := map[string]any{
		"movements": len(snap.Movements),
		"balance":   domain.FormatAmount(snap.Balance()),
	}
	if !snap.IsEmpty() {
		path, err := d.Reports.Archive(snap)
		switch {
		case err != nil:
			d.log.Warn().Err(err).Msg("failed to archive closing statement")
			b.WriteString("\nWarning: the statement file could not be saved.")
		case path != "":
			details["archive"] = path
			b.WriteString("\nStatement saved as ")
			b.WriteString(path)
		}
	}

	d.audit(ctx, who, domain.AuditActionClose, outcome(closing.Persisted), text, details)
	return withWarning(b.String(), closing.Persisted)
}

func (d *Dispatcher) undo(ctx context.Context, who caller, scope, text string) string {
	receipt, err := d.Ledger.UndoLast(ctx, scope)
	if err != nil {
		return d.errorReply(err, CmdUndo)
	}
	m := receipt.Movement

	d.audit(ctx, who, domain.AuditActionUndo, outcome(receipt.Persisted), text, map[string]any{
		"movement_id": m.ID.String(),
		"recorded_by": m.Actor,
	})
	reply := fmt.Sprintf("Removed %s %s by %s. Balance: %s", m.Kind, domain.FormatSigned(m.Signed()), m.Actor, d.money(receipt.Balance))
	return withWarning(reply, receipt.Persisted)
}

func (d *Dispatcher) addOperator(ctx context.Context, who caller, cmd Command, text string) string {
	arg := cmd.FirstArg()
	if arg == "" {
		return usage[CmdAddOperator]
	}
	id, added, err := d.Operators.AddOperator(ctx, arg)
	if err != nil {
		d.audit(ctx, who, domain.AuditActionAddOperator, domain.AuditOutcomeRejected, text, map[string]any{"error": err.Error()})
		return d.errorReply(err, CmdAddOperator)
	}
	d.audit(ctx, who, domain.AuditActionAddOperator, domain.AuditOutcomeSuccess, text, map[string]any{"operator": id, "changed": added})

	if !added {
		return fmt.Sprintf("%s is already an operator.", domain.DisplayOperator(id))
	}
	return fmt.Sprintf("%s added to the operators.", domain.DisplayOperator(id))
}

func (d *Dispatcher) removeOperator(ctx context.Context, who caller, cmd Command, text string) string {
	arg := cmd.FirstArg()
	if arg == "" {
		return usage[CmdRemoveOperator]
	}
	id, removed, err := d.Operators.RemoveOperator(ctx, arg)
	if err != nil {
		d.audit(ctx, who, domain.AuditActionRemoveOperator, domain.AuditOutcomeRejected, text, map[string]any{"error": err.Error()})
		return d.errorReply(err, CmdRemoveOperator)
	}
	d.audit(ctx, who, domain.AuditActionRemoveOperator, domain.AuditOutcomeSuccess, text, map[string]any{"operator": id, "changed": removed})

	if !removed {
		return fmt.Sprintf("%s is not an operator.", domain.DisplayOperator(id))
	}
	return fmt.Sprintf("%s removed from the operators.", domain.DisplayOperator(id))
}

func (d *Dispatcher) listOperators(ctx context.Context) string {
	ids := d.Operators.List(ctx)
	var b strings.Builder
	b.WriteString("Operators:")
	for _, id := range ids {
		b.WriteString("\n")
		b.WriteString(domain.DisplayOperator(id))
	}
	return b.String()
}

func (d *Dispatcher) issueToken(ctx context.Context, who caller, text string) string {
	if d.Tokens == nil {
		return msgTokenOff
	}
	token, expiresAt, err := d.Tokens.Generate(who.id)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to issue dashboard token")
		return msgInternal
	}
	d.audit(ctx, who, domain.AuditActionIssueToken, domain.AuditOutcomeSuccess, text, map[string]any{"expires_at": expiresAt.Unix()})
	return fmt.Sprintf("Dashboard token, valid until %s UTC:\n%s", expiresAt.UTC().Format("2006-01-02 15:04"), token)
}

// allow applies the per-caller rate limit. Limiter failures let the command
// through.
func (d *Dispatcher) allow(ctx context.Context, who caller) bool {
	if d.Limiter == nil || d.opts.RateLimit <= 0 {
		return true
	}
	res, err := d.Limiter.Allow(ctx, "chat:"+who.id, d.opts.RateLimit, d.opts.RateWindow)
	if err != nil {
		d.log.Warn().Err(err).Msg("rate limit check failed, allowing command (degraded mode)")
		return true
	}
	return res.Allowed
}

func (d *Dispatcher) errorReply(err error, cmdName string) string {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		d.log.Error().Err(err).Str("command", cmdName).Msg("unexpected command error")
		return msgInternal
	}

	switch {
	case errors.Is(err, apperror.ErrInvalidAmount()):
		reply := "Invalid amount"
		if cause := appErr.Unwrap(); cause != nil {
			reply += ": " + cause.Error()
		}
		if u, ok := usage[cmdName]; ok {
			reply += ". " + u
		}
		return reply
	case errors.Is(err, apperror.ErrEmptyLedger()):
		return msgNothingUndo
	case errors.Is(err, apperror.ErrInvalidOperator()):
		return "Invalid operator. " + usage[cmdName]
	case errors.Is(err, apperror.ErrLastOperator()):
		return msgLastOperator
	case errors.Is(err, apperror.ErrUnauthorized()):
		return msgUnauthorized
	}

	d.log.Error().Err(err).Str("command", cmdName).Msg("command failed")
	return msgInternal
}

func (d *Dispatcher) audit(ctx context.Context, who caller, action domain.AuditAction, result domain.AuditOutcome, command string, details map[string]any) {
	if d.Audit == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New(),
		Actor:     who.actor,
		Action:    action,
		Outcome:   result,
		Command:   command,
		CreatedAt: time.Now().UTC(),
	}
	if len(details) > 0 {
		raw, _ := json.Marshal(details)
		entry.Details = string(raw)
	}
	d.Audit.Log(ctx, entry)
}

func outcome(persisted bool) domain.AuditOutcome {
	if persisted {
		return domain.AuditOutcomeSuccess
	}
	return domain.AuditOutcomeDegraded
}
