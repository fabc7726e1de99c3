package service

import (
	"context"
	"strconv"

	"alumnireg/internal/notification"
	"alumnireg/internal/payment/models"
	regModels "alumnireg/internal/registration/models"
	"alumnireg/pkg/requestcontext"
)

// notifyPayment emails a receipt to the payer, or to the registrant when the
// checkout did not report a payer email.
func (s *Service) notifyPayment(ctx context.Context, txn *models.Transaction, reg *regModels.Registration) {
	recipient := txn.Payer.Email
	if recipient == "" {
		recipient = reg.Email.String()
	}
	name := txn.Payer.Name
	if name == "" {
		name = reg.Summary().Name
	}
	intent := notification.NewIntent(notification.KindPaymentConfirmation, notification.ChannelEmail, recipient,
		map[string]string{
			"name":            name,
			"amount":          strconv.FormatInt(txn.Amount, 10),
			"currency":        s.cfg.Currency,
			"transaction_id":  txn.ID.String(),
			"purpose":         string(txn.Purpose),
			"registration_id": txn.RegistrationID.String(),
		}, requestcontext.Now(ctx))

	if err := notification.EnqueueAll(ctx, s.notifier, s.cfg.DispatchTimeout, intent); err != nil {
		s.logger.WarnContext(ctx, "payment notification not enqueued",
			"registration_id", txn.RegistrationID.String(),
			"transaction_id", txn.ID.String(),
			"error", err,
		)
	}
}
