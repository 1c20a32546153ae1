// Package notify turns workflow events into Telegram messages.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"go.uber.org/zap"
)

// Sender is the part of *bot.Bot the notifier uses
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier messages every recipient of an event that linked a chat id
type TelegramNotifier struct {
	sender Sender
	users  domain.PrincipalRepository
	logger *zap.Logger
}

// NewTelegramNotifier creates a new notifier
func NewTelegramNotifier(sender Sender, users domain.PrincipalRepository, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, users: users, logger: logger}
}

// Handle delivers one event. Send failures for single recipients are logged
// and do not fail the event; a failed recipient lookup does.
func (n *TelegramNotifier) Handle(ctx context.Context, e domain.Event) error {
	text := Message(e)
	if text == "" {
		n.logger.Debug("no message for event type", zap.String("type", string(e.Type)))
		return nil
	}

	recipients, err := n.recipients(ctx, e)
	if err != nil {
		return err
	}

	sent := 0
	for _, p := range recipients {
		if p.TelegramChatID == 0 {
			continue
		}
		if _, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: p.TelegramChatID,
			Text:   text,
		}); err != nil {
			n.logger.Warn("telegram send failed",
				zap.String("event_id", e.ID),
				zap.String("user_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	n.logger.Info("event delivered",
		zap.String("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.Int("recipients", len(recipients)),
		zap.Int("sent", sent),
	)
	return nil
}

// recipients resolves explicit ids and the role fan-out, without the actor
func (n *TelegramNotifier) recipients(ctx context.Context, e domain.Event) ([]*domain.Principal, error) {
	seen := map[string]bool{e.ActorID: true}
	var out []*domain.Principal

	for _, id := range e.RecipientIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		p, err := n.users.GetByID(ctx, id)
		if err != nil {
			n.logger.Warn("recipient lookup failed", zap.String("user_id", id), zap.Error(err))
			continue
		}
		out = append(out, p)
	}

	if e.NotifyRole != "" {
		list, err := n.users.List(ctx, domain.PrincipalFilter{Role: e.NotifyRole})
		if err != nil {
			return nil, fmt.Errorf("list %s recipients: %w", e.NotifyRole, err)
		}
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// Message renders the text for an event, empty for types nobody is told about
func Message(e domain.Event) string {
	attr := func(k string) string { return e.Attributes[k] }
	when := strings.TrimSpace(attr("preferred_date") + " " + attr("preferred_time"))

	switch e.Type {
	case domain.EventBookingSubmitted:
		return fmt.Sprintf("New booking request %q for %s is waiting for a mentor.", attr("topic"), when)
	case domain.EventMentorAssigned:
		return fmt.Sprintf("Booking %q on %s has a mentor assigned and is waiting for their answer.", attr("topic"), when)
	case domain.EventAssignmentResponded:
		if attr("response") == string(domain.ResponseAccepted) {
			return fmt.Sprintf("Your booking %q was accepted by the mentor.", attr("topic"))
		}
		return fmt.Sprintf("The mentor declined booking %q.", attr("topic"))
	case domain.EventBookingCancelled:
		return fmt.Sprintf("Booking %q was cancelled by the mentee.", attr("topic"))
	case domain.EventBookingCompleted:
		return fmt.Sprintf("Booking %q is completed. Thank you!", attr("topic"))
	case domain.EventReviewSubmitted:
		return fmt.Sprintf("You received a %s star review for %q.", attr("rating"), attr("topic"))
	case domain.EventUserApproved:
		return "Your account was approved. Welcome aboard!"
	case domain.EventUserRejected:
		return "Your account application was not approved."
	case domain.EventRoleChanged:
		return fmt.Sprintf("Your role changed from %s to %s. Please sign in again.", attr("from"), attr("to"))
	}
	return ""
}
