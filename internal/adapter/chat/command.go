// Package chat turns chat text commands into ledger operations.
package chat

import (
	"strings"
	"unicode"
)

// Canonical command names.
const (
	CmdCredit         = "credit"
	CmdDebit          = "debit"
	CmdCommission     = "commission"
	CmdBalance        = "balance"
	CmdReport         = "report"
	CmdClose          = "close"
	CmdUndo           = "undo"
	CmdUndoMine       = "undo_mine"
	CmdAddOperator    = "add_operator"
	CmdRemoveOperator = "remove_operator"
	CmdOperators      = "operators"
	CmdToken          = "token"
	CmdHelp           = "help"
)

var aliases = map[string]string{
	"a":             CmdCredit,
	"credit":        CmdCredit,
	"add":           CmdCredit,
	"s":             CmdDebit,
	"debit":         CmdDebit,
	"sub":           CmdDebit,
	"c":             CmdCommission,
	"commission":    CmdCommission,
	"total":         CmdBalance,
	"balance":       CmdBalance,
	"report":        CmdReport,
	"movements":     CmdReport,
	"stop":          CmdClose,
	"close":         CmdClose,
	"undo":          CmdUndo,
	"undo_mine":     CmdUndoMine,
	"add_operatore": CmdAddOperator,
	"add_operator":  CmdAddOperator,
	"rm_operatore":  CmdRemoveOperator,
	"rm_operator":   CmdRemoveOperator,
	"operators":     CmdOperators,
	"token":         CmdToken,
	"start":         CmdHelp,
	"help":          CmdHelp,
}

// Command is a parsed "/name arg..." message.
type Command struct {
	// Name is the canonical name, empty for unknown commands.
	Name string
	// Raw is the command word as typed, without the bot suffix.
	Raw string
	// Args is everything after the command word, trimmed.
	Args string
}

// FirstArg returns the first whitespace separated argument.
func (c Command) FirstArg() string {
	fields := strings.Fields(c.Args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ParseCommand parses text. ok is false when text is not a command or is
// addressed to a different bot ("/a@otherbot 10"). botName may be empty.
func ParseCommand(text, botName string) (cmd Command, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return Command{}, false
	}

	head, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, args = text[:i], strings.TrimSpace(text[i:])
	}

	word, target, addressed := strings.Cut(head[1:], "@")
	if addressed && botName != "" && !strings.EqualFold(target, strings.TrimPrefix(botName, "@")) {
		return Command{}, false
	}
	if word == "" {
		return Command{}, false
	}

	word = strings.ToLower(word)
	return Command{Name: aliases[word], Raw: "/" + word, Args: args}, true
}

// requiresOperator reports whether name mutates state or exposes data that
// only operators may see.
func requiresOperator(name string, openBalance bool) bool {
	switch name {
	case CmdHelp, "":
		return false
	case CmdBalance:
		return !openBalance
	}
	return true
}
