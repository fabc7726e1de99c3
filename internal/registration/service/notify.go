package service

import (
	"context"
	"strconv"

	"alumnireg/internal/notification"
	"alumnireg/internal/registration/models"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
	audit "alumnireg/pkg/platform/audit"
	"alumnireg/pkg/requestcontext"
)

// notifyConfirmation emails the registrant once the form is submitted.
func (s *Service) notifyConfirmation(ctx context.Context, reg *models.Registration) {
	s.enqueue(ctx, reg, s.confirmationIntent(ctx, reg))
}

// confirmationIntent builds the confirmation email. An attending party gets a
// QR check-in pass attached.
func (s *Service) confirmationIntent(ctx context.Context, reg *models.Registration) notification.Intent {
	summary := reg.Summary()
	intent := notification.NewIntent(notification.KindRegistrationConfirmation, notification.ChannelEmail,
		reg.Email.String(), map[string]string{
			"name":                summary.Name,
			"registration_id":     reg.ID.String(),
			"registration_status": string(reg.RegistrationStatus),
			"attending":           strconv.FormatBool(summary.IsAttending),
			"total_attendees":     strconv.Itoa(summary.TotalAttendees),
		}, requestcontext.Now(ctx))

	if summary.IsAttending && s.cfg.CheckInBaseURL != "" {
		pass, err := notification.CheckInPass(s.cfg.CheckInBaseURL, reg.ID.String())
		if err != nil {
			s.logger.WarnContext(ctx, "failed to build check-in pass",
				"registration_id", reg.ID.String(),
				"error", err,
			)
		} else {
			intent.Attachments = append(intent.Attachments, pass)
		}
	}
	return intent
}

// ResendConfirmation queues the confirmation email again on an operator's
// request. Only registrations with a completed payment qualify. Unlike the
// submission path, a queueing failure is returned to the caller.
func (s *Service) ResendConfirmation(ctx context.Context, regID id.RegistrationID) error {
	ctx, span := s.tracer.Start(ctx, "registration.ResendConfirmation")
	defer span.End()

	reg, err := s.find(ctx, regID)
	if err != nil {
		return err
	}
	if reg.PaymentStatus != models.PaymentCompleted {
		return dErrors.WithMeta(
			dErrors.New(dErrors.CodeValidation, "confirmation is only resent for registrations with a completed payment"),
			"payment_status", string(reg.PaymentStatus),
		)
	}

	if err := notification.EnqueueAll(ctx, s.notifier, s.cfg.DispatchTimeout, s.confirmationIntent(ctx, reg)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue confirmation")
	}
	s.logAudit(ctx, audit.EventConfirmationResent,
		"subject", reg.Email.String(),
		"registration_id", reg.ID.String(),
	)
	return nil
}

// notifyHardship alerts the association's operators so someone follows up.
func (s *Service) notifyHardship(ctx context.Context, reg *models.Registration, minimum int64) {
	summary := reg.Summary()
	s.enqueue(ctx, reg, notification.NewIntent(notification.KindHardshipFollowup, notification.ChannelOperator, "",
		map[string]string{
			"name":            summary.Name,
			"email":           reg.Email.String(),
			"contact_number":  reg.ContactNumber.String(),
			"pledged":         strconv.FormatInt(summary.PledgedAmount, 10),
			"minimum":         strconv.FormatInt(minimum, 10),
			"registration_id": reg.ID.String(),
		}, requestcontext.Now(ctx)))
}

func (s *Service) enqueue(ctx context.Context, reg *models.Registration, intents ...notification.Intent) {
	if err := notification.EnqueueAll(ctx, s.notifier, s.cfg.DispatchTimeout, intents...); err != nil {
		s.logger.WarnContext(ctx, "registration notification not enqueued",
			"registration_id", reg.ID.String(),
			"error", err,
		)
	}
}
