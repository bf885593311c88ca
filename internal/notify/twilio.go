package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/phone"
)

// DefaultWhatsAppFrom is the Twilio WhatsApp sandbox sender.
const DefaultWhatsAppFrom = "whatsapp:+14155238886"

type TwilioConfig struct {
	Enabled      bool
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// WhatsAppNotifier sends messages through Twilio's WhatsApp channel.
type WhatsAppNotifier struct {
	api  messageCreator
	from string
	log  *slog.Logger
}

// NewNotifier returns a Twilio WhatsApp notifier when cfg is enabled and
// complete, and a LogNotifier otherwise.
func NewNotifier(cfg TwilioConfig, log *slog.Logger) Notifier {
	if log == nil {
		log = slog.Default()
	}
	sid := strings.TrimSpace(cfg.AccountSID)
	token := strings.TrimSpace(cfg.AuthToken)
	if !cfg.Enabled || sid == "" || token == "" {
		if cfg.Enabled {
			log.Warn("twilio enabled without credentials; falling back to simulated delivery")
		}
		return NewLogNotifier(log)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})
	return newWhatsAppNotifier(client.Api, cfg.WhatsAppFrom, log)
}

func newWhatsAppNotifier(api messageCreator, from string, log *slog.Logger) *WhatsAppNotifier {
	from = strings.TrimSpace(from)
	if from == "" {
		from = DefaultWhatsAppFrom
	}
	return &WhatsAppNotifier{
		api:  api,
		from: phone.WhatsAppAddress(from),
		log:  log.With(slog.String("component", "notify.whatsapp")),
	}
}

func (n *WhatsAppNotifier) Send(ctx context.Context, to, body string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if strings.TrimSpace(to) == "" {
		return Receipt{}, errors.New("notify: destination is required")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone.WhatsAppAddress(to))
	params.SetFrom(n.from)
	params.SetBody(body)

	msg, err := n.api.CreateMessage(params)
	if err != nil {
		return Receipt{}, &domain.DependencyError{Op: "notify.whatsapp.send", Err: err}
	}

	var r Receipt
	if msg != nil {
		if msg.Sid != nil {
			r.ID = *msg.Sid
		}
		if msg.Status != nil {
			r.Status = *msg.Status
		}
	}
	n.log.DebugContext(ctx, "message queued", slog.String("sid", r.ID), slog.String("status", r.Status))
	return r, nil
}
