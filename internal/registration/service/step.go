package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"alumnireg/internal/registration/models"
	"alumnireg/internal/registration/store"
	verificationModels "alumnireg/internal/verification/models"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
	audit "alumnireg/pkg/platform/audit"
	"alumnireg/pkg/platform/sentinel"
	"alumnireg/pkg/requestcontext"
)

// NewRegistrationRef addresses step 1 of a registration that does not exist yet.
const NewRegistrationRef = "new"

// StepCommand is one wizard save.
type StepCommand struct {
	// RegistrationRef is a registration id or NewRegistrationRef.
	RegistrationRef string
	Step            int
	Patch           models.FormPatch
	Token           string
}

// StepResult reports the aggregate after a save.
type StepResult struct {
	Registration *models.Registration
	Created      bool
	// Minimum is evaluated on final-step saves only.
	Minimum      int64
	HardshipFlow bool
}

// SaveStep validates and merges one wizard step. Step 1 against
// NewRegistrationRef creates the registration behind the verification gate;
// every other save patches an existing registration addressed by id.
func (s *Service) SaveStep(ctx context.Context, cmd StepCommand) (*StepResult, error) {
	ctx, span := s.tracer.Start(ctx, "registration.SaveStep")
	defer span.End()
	span.SetAttributes(attribute.Int("registration.step", cmd.Step))

	if cmd.Step < models.FirstStep || cmd.Step > models.FinalStep {
		return nil, dErrors.New(dErrors.CodeValidation, "step must be between 1 and 8")
	}
	if cmd.Patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "stepData must contain at least one section")
	}

	grant, err := s.gate.Authorize(ctx, cmd.Token)
	if err != nil {
		return nil, err
	}

	if cmd.RegistrationRef == NewRegistrationRef {
		if cmd.Step != models.FirstStep {
			return nil, dErrors.New(dErrors.CodeValidation, "a new registration starts at step 1")
		}
		return s.create(ctx, *grant, cmd.Patch)
	}

	regID, err := id.ParseRegistrationID(cmd.RegistrationRef)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("registration.id", regID.String()))
	return s.merge(ctx, *grant, regID, cmd.Step, cmd.Patch)
}

func (s *Service) create(ctx context.Context, grant verificationModels.Grant, patch models.FormPatch) (*StepResult, error) {
	existing, err := s.store.FindByIdentity(ctx, grant.Email, grant.ContactNumber)
	switch {
	case err == nil:
		if existing.VerificationID == grant.VerificationID {
			// The client retried a step-1 save whose response it lost.
			return s.merge(ctx, grant, existing.ID, models.FirstStep, patch)
		}
		return nil, dErrors.WithMeta(
			dErrors.New(dErrors.CodeDuplicateIdentity, "a registration already exists for this email or contact number"),
			"registration_id", existing.ID.String())
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up registration")
	}

	if err := s.gate.RequireVerified(ctx, grant); err != nil {
		return nil, err
	}

	reg, err := models.NewRegistration(s.newID(), grant.Email, grant.ContactNumber, grant.VerificationID, patch, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, reg); err != nil {
		if store.IsDuplicateIdentity(err) {
			return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "a registration already exists for this email or contact number")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
	}

	if err := s.gate.Consume(ctx, grant); err != nil {
		s.logger.WarnContext(ctx, "failed to consume verification after registration",
			"registration_id", reg.ID.String(),
			"verification_id", grant.VerificationID.String(),
			"error", err,
		)
	}

	s.metrics.IncrementCreated()
	s.metrics.IncrementStepSave(strconv.Itoa(models.FirstStep), "saved")
	s.logAudit(ctx, audit.EventRegistrationCreated,
		"subject", reg.Email.String(),
		"registration_id", reg.ID.String(),
	)
	return &StepResult{Registration: reg, Created: true}, nil
}

// merge applies patch to the stored registration, re-reading and re-applying
// it when a concurrent write bumps the version first.
func (s *Service) merge(ctx context.Context, grant verificationModels.Grant, regID id.RegistrationID, step int, patch models.FormPatch) (*StepResult, error) {
	stepLabel := strconv.Itoa(step)

	for attempt := 0; attempt < s.cfg.MaxConflictRetries; attempt++ {
		reg, err := s.find(ctx, regID)
		if err != nil {
			return nil, err
		}
		if !grant.Covers(reg.Email, reg.ContactNumber) {
			return nil, dErrors.New(dErrors.CodeForbidden, "verification token does not match this registration")
		}

		outcome, err := reg.MergeStep(step, patch, s.calc, requestcontext.Now(ctx))
		if err != nil {
			return nil, err
		}
		result := &StepResult{
			Registration: reg,
			Minimum:      outcome.Minimum,
			HardshipFlow: step == models.FinalStep && reg.InHardship(),
		}
		if !outcome.Changed {
			s.metrics.IncrementStepSave(stepLabel, "unchanged")
			return result, nil
		}

		err = s.store.Update(ctx, reg)
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementConflict()
			s.logger.InfoContext(ctx, "registration version conflict, retrying step",
				"registration_id", regID.String(),
				"step", step,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
		}

		s.metrics.IncrementStepSave(stepLabel, "saved")
		s.logAudit(ctx, audit.EventRegistrationStepSaved,
			"subject", reg.Email.String(),
			"registration_id", reg.ID.String(),
			"step", step,
			"version", reg.Version,
		)
		s.afterFinalStep(ctx, reg, outcome)
		return result, nil
	}

	return nil, dErrors.New(dErrors.CodeConflict, "registration was modified concurrently, retry the step")
}

func (s *Service) afterFinalStep(ctx context.Context, reg *models.Registration, outcome models.StepOutcome) {
	if outcome.HardshipDeclared {
		s.metrics.IncrementHardship()
		s.logAudit(ctx, audit.EventHardshipDeclared,
			"subject", reg.Email.String(),
			"registration_id", reg.ID.String(),
			"pledged", reg.Form.Financial.Pledged(),
			"minimum", outcome.Minimum,
		)
		s.notifyHardship(ctx, reg, outcome.Minimum)
	}
	if outcome.Submitted {
		s.metrics.IncrementSubmission(string(reg.RegistrationStatus))
		s.logAudit(ctx, audit.EventRegistrationSubmitted,
			"subject", reg.Email.String(),
			"registration_id", reg.ID.String(),
			"registration_status", string(reg.RegistrationStatus),
			"payment_status", string(reg.PaymentStatus),
		)
		s.notifyConfirmation(ctx, reg)
	}
}
