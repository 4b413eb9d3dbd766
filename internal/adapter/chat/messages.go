package chat

import (
	"fmt"

	"till-bot/internal/core/domain"

	"github.com/shopspring/decimal"
)

const (
	msgUnauthorized = "You are not authorized."
	msgRateLimited  = "Too many commands, slow down and retry in a minute."
	msgNotPersisted = "Warning: storage is unavailable, this change was not saved."
	msgNothingUndo  = "Nothing to undo."
	msgLastOperator = "Cannot remove the last operator."
	msgInternal     = "Something went wrong, please retry."
	msgTokenOff     = "Dashboard tokens are not enabled."
)

var usage = map[string]string{
	CmdCredit:         "Usage: /a <amount>",
	CmdDebit:          "Usage: /s <amount>",
	CmdCommission:     "Usage: /c <amount>",
	CmdAddOperator:    "Usage: /add_operatore @username",
	CmdRemoveOperator: "Usage: /rm_operatore @username",
}

const helpText = `Till bot commands:
/a <amount> record a credit
/s <amount> record a debit
/c <amount> record a commission
/total show the balance
/report list movements without closing
/stop print the statement and reset the till
/undo remove the last movement
/undo_mine remove your last movement
/add_operatore @username add an operator
/rm_operatore @username remove an operator
/operators list operators
/token get a dashboard token`

var recordVerb = map[domain.MovementKind]string{
	domain.MovementKindCredit:     "added",
	domain.MovementKindDebit:      "subtracted",
	domain.MovementKindCommission: "recorded commission",
}

func (d *Dispatcher) money(v decimal.Decimal) string {
	if d.opts.Currency == "" {
		return domain.FormatAmount(v)
	}
	return domain.FormatAmount(v) + " " + d.opts.Currency
}

func recordReply(actor string, m domain.Movement, balance string) string {
	return fmt.Sprintf("%s %s %s. Balance: %s", actor, recordVerb[m.Kind], domain.FormatAmount(m.Amount), balance)
}

func withWarning(reply string, persisted bool) string {
	if persisted {
		return reply
	}
	return reply + "\n" + msgNotPersisted
}
