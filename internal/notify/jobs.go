package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/notifyd/pkg/enums"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/queue"
)

// RegisterJobs binds the deferred delivery handlers to their job kinds.
func (s *Service) RegisterJobs(registry *queue.Registry) {
	registry.Register(JobKindSMSDeliver, s.HandleSMSJob)
	registry.Register(JobKindMailDeliver, s.HandleMailJob)
}

// HandleSMSJob reloads the SMS, runs the delivery and saves the result. The
// audit log is saved even when the provider call fails.
func (s *Service) HandleSMSJob(ctx context.Context, job queue.Job) error {
	var payload smsJobPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	id, err := uuid.Parse(payload.SMSNotificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sms notification id")
	}

	logg := s.env.logger()
	ctx = logg.WithFields(ctx, map[string]any{
		"job_id":              job.ID,
		"sms_notification_id": id.String(),
	})

	row, err := s.repo.FindSMS(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "sms notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sms notification")
	}
	sms := smsFromModel(row)

	sendErr := s.deliverSMS(ctx, sms)
	if err := s.repo.UpdateSMS(ctx, sms.ID, sms.deliveryUpdates()); err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sms delivery")
		logg.Error(ctx, "failed to save sms delivery", err)
		if sendErr == nil {
			return err
		}
	}
	return sendErr
}

// HandleMailJob invokes the mailer with the stored arguments and appends the
// transport result to the email's audit log.
func (s *Service) HandleMailJob(ctx context.Context, job queue.Job) error {
	var payload mailJobPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}

	logg := s.env.logger()
	ctx = logg.WithFields(ctx, map[string]any{
		"job_id":                job.ID,
		"email_notification_id": payload.EmailNotificationID,
		"channel":               string(enums.ChannelEmail),
	})

	mail, err := s.mailers.Invoke(ctx, payload.Mailer, payload.Method, payload.Arguments)
	if err != nil {
		s.recordFailure(ctx, enums.ChannelEmail, "mailer failed", err)
		return err
	}
	sent, err := s.transport.Send(ctx, mail)
	if err != nil {
		s.recordFailure(ctx, enums.ChannelEmail, "email delivery failed", err)
		return err
	}
	s.recordDelivered(enums.ChannelEmail)

	if payload.EmailNotificationID == "" {
		return nil
	}
	id, err := uuid.Parse(payload.EmailNotificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email notification id")
	}
	row, err := s.repo.FindEmail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logg.Warn(ctx, "email notification removed before delivery was recorded")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load email notification")
	}
	email := emailFromModel(row)
	if err := email.appendAudit(nil, sent.Snapshot(mail)); err != nil {
		return err
	}
	if err := s.repo.UpdateEmail(ctx, email.ID, map[string]any{"response_json": email.ResponseJSON}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save email delivery")
	}
	return nil
}
