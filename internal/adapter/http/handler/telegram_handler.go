package handler

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"till-bot/internal/adapter/http/dto"
	"till-bot/internal/core/ports"
	"till-bot/pkg/apperror"
	"till-bot/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// UpdateTTL is how long an update id is remembered for redelivery checks.
const UpdateTTL = 24 * time.Hour

// MaxMessageRunes is the Bot API limit on the text of one message.
const MaxMessageRunes = 4096

const truncatedNote = "\n(reply truncated, download the full statement from the dashboard export)"

// TelegramHandler receives Telegram webhook updates.
type TelegramHandler struct {
	dispatcher ports.CommandDispatcher
	dedup      ports.UpdateDeduper // nil = no redelivery check
	replies    ports.ReplyCache    // nil = redeliveries get no reply
	sender     ports.MessageSender // nil = long replies are truncated
	log        zerolog.Logger
}

// NewTelegramHandler creates a new TelegramHandler.
func NewTelegramHandler(dispatcher ports.CommandDispatcher, dedup ports.UpdateDeduper, replies ports.ReplyCache, sender ports.MessageSender, log zerolog.Logger) *TelegramHandler {
	return &TelegramHandler{dispatcher: dispatcher, dedup: dedup, replies: replies, sender: sender, log: log}
}

// Webhook handles POST /webhook/telegram. The reply is returned in the
// response body as a sendMessage call; updates without a reply get {}.
func (h *TelegramHandler) Webhook(c *gin.Context) {
	var upd dto.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	text := upd.CommandText()
	msg := upd.Message
	if text == "" || msg.From == nil || msg.From.IsBot {
		noReply(c)
		return
	}

	ctx := c.Request.Context()
	log := h.log.With().Int64("update_id", upd.UpdateID).Int64("chat_id", msg.Chat.ID).Logger()

	if !h.firstDelivery(ctx, upd.UpdateID, log) {
		if reply, ok := h.cachedReply(ctx, upd.UpdateID, log); ok {
			h.deliver(c, msg, reply, log)
			return
		}
		noReply(c)
		return
	}

	reply := h.dispatcher.Dispatch(ctx, ports.InboundMessage{
		UpdateID: upd.UpdateID,
		ChatID:   msg.Chat.ID,
		UserID:   msg.From.ID,
		Username: msg.From.Username,
		Text:     text,
	})
	if reply == "" {
		noReply(c)
		return
	}

	if h.replies != nil {
		if err := h.replies.Set(ctx, upd.UpdateID, reply, UpdateTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache reply")
		}
	}
	h.deliver(c, msg, reply, log)
}

// deliver answers in the webhook response when reply fits in one message.
// Longer replies, such as the statement of a busy till, are posted in parts
// through the Bot API.
func (h *TelegramHandler) deliver(c *gin.Context, msg *dto.Message, reply string, log zerolog.Logger) {
	if utf8.RuneCountInString(reply) <= MaxMessageRunes {
		sendReply(c, msg, reply)
		return
	}

	if h.sender == nil {
		log.Warn().Int("length", utf8.RuneCountInString(reply)).Msg("reply too long and no bot client, truncating")
		head := splitReply(reply, MaxMessageRunes-utf8.RuneCountInString(truncatedNote))[0]
		sendReply(c, msg, head+truncatedNote)
		return
	}

	ctx := c.Request.Context()
	parts := splitReply(reply, MaxMessageRunes)
	for i, part := range parts {
		var replyTo int64
		if i == 0 {
			replyTo = msg.MessageID
		}
		if err := h.sender.SendMessage(ctx, msg.Chat.ID, part, replyTo); err != nil {
			log.Error().Err(err).Int("part", i+1).Int("parts", len(parts)).Msg("failed to send reply part")
			sendReply(c, msg, part)
			return
		}
	}
	log.Info().Int("parts", len(parts)).Msg("long reply sent in parts")
	noReply(c)
}

// firstDelivery fails open: a dedup store error lets the update through.
func (h *TelegramHandler) firstDelivery(ctx context.Context, updateID int64, log zerolog.Logger) bool {
	if h.dedup == nil {
		return true
	}
	first, err := h.dedup.FirstSeen(ctx, updateID, UpdateTTL)
	if err != nil {
		log.Warn().Err(err).Msg("update dedup failed, processing update (degraded mode)")
		return true
	}
	if !first {
		log.Info().Msg("duplicate update delivery")
	}
	return first
}

func (h *TelegramHandler) cachedReply(ctx context.Context, updateID int64, log zerolog.Logger) (string, bool) {
	if h.replies == nil {
		return "", false
	}
	reply, found, err := h.replies.Get(ctx, updateID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read cached reply")
		return "", false
	}
	return reply, found
}

func sendReply(c *gin.Context, msg *dto.Message, text string) {
	c.JSON(http.StatusOK, dto.SendMessage{
		Method:           "sendMessage",
		ChatID:           msg.Chat.ID,
		Text:             text,
		ReplyToMessageID: msg.MessageID,
	})
}

func noReply(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

// splitReply cuts text into parts of at most limit runes, at line breaks
// where possible.
func splitReply(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if part := strings.TrimRight(cur.String(), "\n"); part != "" {
			parts = append(parts, part)
		}
		cur.Reset()
		curLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}
