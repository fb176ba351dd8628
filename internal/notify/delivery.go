package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	dbtypes "github.com/angelmondragon/notifyd/pkg/db/types"
	"github.com/angelmondragon/notifyd/pkg/enums"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

const (
	JobKindSMSDeliver  = "sms.deliver"
	JobKindMailDeliver = "mail.deliver"
)

// DeliverLaterOptions tune a deferred delivery. Zero values fall back to the
// host type defaults and then to the global settings.
type DeliverLaterOptions struct {
	Wait  time.Duration
	Queue string
}

type deliveryOverride struct {
	mode  enums.DeliveryMode
	later DeliverLaterOptions
}

// deliveryPlan describes a deferred delivery. A nil plan means deliver inline.
type deliveryPlan struct {
	queue string
	wait  time.Duration
}

func resolvePlan(channel enums.Channel, override deliveryOverride, host Notifyable, settings Settings) *deliveryPlan {
	useQueue := settings.UseQueue
	plan := deliveryPlan{wait: settings.Delay, queue: settings.smsQueue()}
	if channel == enums.ChannelEmail {
		plan.queue = settings.mailQueue()
	}

	if defaulter, ok := host.(DeliveryDefaulter); ok {
		defaults := defaulter.DeliveryDefaults(channel)
		if defaults.UseQueue != nil {
			useQueue = *defaults.UseQueue
		}
		if defaults.Queue != "" {
			plan.queue = defaults.Queue
		}
		if defaults.Wait > 0 {
			plan.wait = defaults.Wait
		}
	}

	switch override.mode {
	case enums.DeliveryModeNow:
		return nil
	case enums.DeliveryModeLater:
		useQueue = true
		if override.later.Queue != "" {
			plan.queue = override.later.Queue
		}
		if override.later.Wait > 0 {
			plan.wait = override.later.Wait
		}
	}

	if !useQueue {
		return nil
	}
	return &plan
}

// sendSMS runs the multi-part delivery: every attachment but the last goes
// out as a bodiless media message, then the body goes out with the last
// attachment. Tracking fields come from the first provider response.
func (s *Service) sendSMS(ctx context.Context, sms *SMSNotification) error {
	provider := s.env.provider
	to, err := provider.FormatNumber(ctx, sms.To)
	if err != nil {
		return phoneError(err, invalidPhoneMessage("recipient", sms.To))
	}
	from, err := provider.FormatNumber(ctx, sms.From)
	if err != nil {
		return phoneError(err, invalidPhoneMessage("sender", sms.From))
	}
	callback := s.env.settings().CallbackURL()

	var (
		first     *twilio.Delivery
		requests  []dbtypes.Snapshot
		responses []dbtypes.Snapshot
	)
	send := func(msg twilio.Message) error {
		delivery, err := provider.SendMessage(ctx, msg)
		if err != nil {
			return err
		}
		if first == nil {
			first = delivery
		}
		requests = append(requests, delivery.Request)
		responses = append(responses, delivery.Response)
		return nil
	}

	media := append([]string(nil), sms.Attachments...)
	var sendErr error
	for len(media) > 1 && sendErr == nil {
		sendErr = send(twilio.Message{To: to, From: from, MediaURL: media[0], StatusCallback: callback})
		media = media[1:]
	}
	if sendErr == nil {
		final := twilio.Message{To: to, From: from, Body: sms.Message, StatusCallback: callback}
		if len(media) == 1 {
			final.MediaURL = media[0]
		}
		sendErr = send(final)
	}

	if err := sms.appendAudit(requests, responses); err != nil {
		return err
	}
	if sendErr != nil {
		return sendErr
	}

	if first.Sid != "" {
		sid := first.Sid
		sms.Sid = &sid
	}
	status := enums.SmsStatusOrUnknown(first.Status)
	sms.Status = &status
	return nil
}

func phoneError(err error, message string) error {
	if errors.Is(err, twilio.ErrInvalidNumber) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return err
}

func (s *SMSNotification) appendAudit(requests, responses []dbtypes.Snapshot) error {
	req, err := dbtypes.AppendPayload(s.RequestJSON, requests...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sms request log")
	}
	resp, err := dbtypes.AppendPayload(s.ResponseJSON, responses...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode sms response log")
	}
	s.RequestJSON, s.ResponseJSON = req, resp
	return nil
}

func (e *EmailNotification) appendAudit(request, response dbtypes.Snapshot) error {
	req, err := dbtypes.AppendPayload(e.RequestJSON, request)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode email request log")
	}
	resp, err := dbtypes.AppendPayload(e.ResponseJSON, response)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode email response log")
	}
	e.RequestJSON, e.ResponseJSON = req, resp
	return nil
}

// sendEmail invokes the mailer method and hands the result to the transport.
func (s *Service) sendEmail(ctx context.Context, email *EmailNotification) error {
	args, err := encodeArguments(email.mailArguments())
	if err != nil {
		return err
	}
	mail, err := s.mailers.Invoke(ctx, email.MailerClass, email.MailerMethod, args)
	if err != nil {
		return err
	}
	sent, err := s.transport.Send(ctx, mail)
	if err != nil {
		return err
	}
	return email.appendAudit(email.requestSnapshot(), sent.Snapshot(mail))
}

func encodeArguments(args []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mailer arguments must be JSON encodable").
				WithDetails(map[string]any{"position": i})
		}
		out = append(out, raw)
	}
	return out, nil
}

type smsJobPayload struct {
	SMSNotificationID string `json:"sms_notification_id"`
}

type mailJobPayload struct {
	EmailNotificationID string            `json:"email_notification_id"`
	Mailer              string            `json:"mailer"`
	Method              string            `json:"method"`
	Arguments           []json.RawMessage `json:"arguments"`
}

func (s *Service) enqueueSMS(ctx context.Context, sms *SMSNotification, plan *deliveryPlan) error {
	if s.queue == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "delivery queue not configured")
	}
	job, err := s.queue.Enqueue(ctx, plan.queue, JobKindSMSDeliver, smsJobPayload{SMSNotificationID: sms.ID.String()}, plan.wait)
	if err != nil {
		return err
	}
	if err := sms.appendAudit(
		[]dbtypes.Snapshot{job.Snapshot()},
		[]dbtypes.Snapshot{{"sid": nil, "status": "enqueued"}},
	); err != nil {
		return err
	}
	status := enums.SmsStatusUnknown
	sms.Status = &status
	return nil
}

func (s *Service) enqueueEmail(ctx context.Context, email *EmailNotification, plan *deliveryPlan) error {
	if s.queue == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "delivery queue not configured")
	}
	args, err := encodeArguments(email.mailArguments())
	if err != nil {
		return err
	}
	payload := mailJobPayload{
		EmailNotificationID: email.ID.String(),
		Mailer:              email.MailerClass,
		Method:              email.MailerMethod,
		Arguments:           args,
	}
	job, err := s.queue.Enqueue(ctx, plan.queue, JobKindMailDeliver, payload, plan.wait)
	if err != nil {
		return err
	}
	return email.appendAudit(email.requestSnapshot(), job.Snapshot())
}
