package notification

import (
	"context"
	"fmt"
	"strings"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/directory"
	"trade_portal_backend/internal/email"
	"trade_portal_backend/internal/notification/outbox"
	"trade_portal_backend/internal/notification/push"

	"github.com/google/uuid"
)

// ContactLookup resolves where to email a user.
type ContactLookup interface {
	GetContact(ctx context.Context, userID uuid.UUID) (directory.Contact, error)
}

// Deliverer renders a notification for one side channel and sends it.
type Deliverer struct {
	push     push.Sender
	email    email.Sender
	contacts ContactLookup
	baseURL  string
}

// NewDeliverer builds a deliverer. A nil push or email sender disables that channel.
func NewDeliverer(pushSender push.Sender, emailSender email.Sender, contacts ContactLookup, baseURL string) *Deliverer {
	return &Deliverer{
		push:     pushSender,
		email:    emailSender,
		contacts: contacts,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Channels lists the enabled side channels.
func (d *Deliverer) Channels() []outbox.Channel {
	var out []outbox.Channel
	if d.push != nil {
		out = append(out, outbox.ChannelPush)
	}
	if d.email != nil && d.contacts != nil {
		out = append(out, outbox.ChannelEmail)
	}
	return out
}

// Deliver sends n through ch.
func (d *Deliverer) Deliver(ctx context.Context, ch outbox.Channel, n domain.Notification) error {
	variant, err := domain.Decode(n.Type, n.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", n.Type, err)
	}

	switch ch {
	case outbox.ChannelPush:
		return d.deliverPush(ctx, n, variant)
	case outbox.ChannelEmail:
		return d.deliverEmail(ctx, n, variant)
	default:
		return fmt.Errorf("unsupported channel %q", ch)
	}
}

func (d *Deliverer) deliverPush(ctx context.Context, n domain.Notification, v domain.Variant) error {
	if d.push == nil {
		return nil
	}
	meta := v.Push()
	return d.push.Send(ctx, push.Message{
		UserID:      n.UserID.String(),
		Title:       n.Title,
		Body:        n.Message,
		DeepLink:    d.link(n.DeepLink),
		Category:    meta.Category,
		Urgent:      meta.Urgent,
		CollapseKey: n.ID.String(),
	})
}

func (d *Deliverer) deliverEmail(ctx context.Context, n domain.Notification, v domain.Variant) error {
	if d.email == nil || d.contacts == nil {
		return nil
	}
	contact, err := d.contacts.GetContact(ctx, n.UserID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(contact.Email) == "" {
		return nil
	}
	return d.email.SendActionEmail(ctx, contact.Email, email.Message{
		Template:      v.EmailTemplate(),
		Subject:       n.Title,
		RecipientName: contact.FullName,
		Heading:       n.Title,
		Body:          n.Message,
		CTALabel:      ctaLabel(n.Role),
		CTAURL:        d.link(n.DeepLink),
	})
}

func (d *Deliverer) link(path string) string {
	if path == "" {
		return d.baseURL
	}
	return d.baseURL + path
}

func ctaLabel(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "Open in admin"
	}
	return "Open in portal"
}
