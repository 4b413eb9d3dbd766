package dto

// --- Telegram Bot API (subset read by the webhook) ---

// Update is an incoming Telegram update.
type Update struct {
	UpdateID      int64    `json:"update_id" binding:"required"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// CommandText returns the text of a message, or "" for updates the bot
// does not act on. Edited messages are ignored so an edit never records a
// movement twice.
func (u Update) CommandText() string {
	if u.Message == nil {
		return ""
	}
	return u.Message.Text
}

// Message is a Telegram chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// User is the sender of a message.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// SendMessage is a Bot API method call returned in the webhook response body.
type SendMessage struct {
	Method           string `json:"method"`
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// --- Dashboard ---

// TotalsResponse holds the aggregate figures of the ledger.
type TotalsResponse struct {
	Movements   int    `json:"movements"`
	Credits     string `json:"credits"`
	Debits      string `json:"debits"`
	Commissions string `json:"commissions"`
	Balance     string `json:"balance"`
	Currency    string `json:"currency"`
}

// MovementResponse is one movement as shown on the dashboard.
type MovementResponse struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Kind       string `json:"kind"`
	Amount     string `json:"amount"`
	Signed     string `json:"signed_amount"`
	RecordedAt int64  `json:"recorded_at"` // Unix timestamp
}

// ReportResponse is the dashboard view of the open till.
type ReportResponse struct {
	Text      string             `json:"text"`
	Movements []MovementResponse `json:"movements"`
	Totals    TotalsResponse     `json:"totals"`
}

// ExportQuery selects the statement format.
type ExportQuery struct {
	Format string `form:"format" binding:"omitempty,export_format"`
}
