package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/notifyd/pkg/enums"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
	"github.com/angelmondragon/notifyd/pkg/pagination"
	"github.com/angelmondragon/notifyd/pkg/queue"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the notification service. Queue, Assets and Metrics
// are optional; without a queue every deferred delivery fails.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Settings  SettingsSource
	Provider  SMSProvider
	Transport MailTransport
	Mailers   *Mailers
	Queue     queue.Enqueuer
	Assets    AssetLocator
	Metrics   *metrics.DeliveryMetrics
	Logger    *logger.Logger
}

// Service builds, validates, persists and delivers notifications for host
// records.
type Service struct {
	repo      Repository
	tx        txRunner
	env       *environment
	transport MailTransport
	mailers   *Mailers
	queue     queue.Enqueuer
	metrics   *metrics.DeliveryMetrics
}

// NewService wires notification dependencies.
func NewService(p ServiceParams) (*Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notify settings required")
	}
	if p.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sms provider required")
	}
	if p.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mail transport required")
	}
	if p.Mailers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mailers registry required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	return &Service{
		repo: p.Repo,
		tx:   p.Tx,
		env: &environment{
			source:   p.Settings,
			assets:   p.Assets,
			provider: p.Provider,
			logg:     logg,
		},
		transport: p.Transport,
		mailers:   p.Mailers,
		queue:     p.Queue,
		metrics:   p.Metrics,
	}, nil
}

// Build starts a new notification on the host's collection.
func (s *Service) Build(host Notifyable, configure ...func(*Notification)) *Notification {
	n := &Notification{
		NotifyableType: host.NotifyableType(),
		NotifyableID:   host.NotifyableID(),
		host:           host,
		env:            s.env,
	}
	for _, fn := range configure {
		if fn != nil {
			fn(n)
		}
	}
	host.Notifications().Add(n)
	return n
}

// Validate applies the host's current email and phone as default recipients
// and validates every pending notification. Messages land under
// "notifications.email" and "notifications.sms".
func (s *Service) Validate(ctx context.Context, host Notifyable) *Errors {
	errs := NewErrors()
	for _, n := range host.Notifications().Pending() {
		n.ApplyDefaultRecipients(host.NotifyEmail(), host.NotifyPhone())
		child := n.Validate(ctx)
		if child.Empty() {
			continue
		}
		errs.Add("notifications", "is invalid")
		for _, key := range child.Keys() {
			for _, msg := range child.Get(key) {
				errs.Add("notifications."+key, msg)
			}
		}
	}
	errs.Delete("notifications")
	return errs
}

// Prepare is the first save phase. It returns a validation error carrying the
// full messages and the per-field map.
func (s *Service) Prepare(ctx context.Context, host Notifyable) error {
	errs := s.Validate(ctx, host)
	if errs.Empty() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, errs.Error()).WithDetails(map[string]any{
		"messages": errs.FullMessages(),
		"fields":   errs.Map(),
	})
}

// Save runs the whole lifecycle: Prepare, then persistHost and Commit in one
// transaction, then AfterCommit once the transaction is durable.
func (s *Service) Save(ctx context.Context, host Notifyable, persistHost func(tx *gorm.DB) error) error {
	if err := s.Prepare(ctx, host); err != nil {
		return err
	}

	var committed []*Notification
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if persistHost != nil {
			if err := persistHost(tx); err != nil {
				return err
			}
		}
		var err error
		committed, err = s.Commit(ctx, tx, host)
		return err
	})
	if err != nil {
		return err
	}
	return s.AfterCommit(ctx, committed)
}

// Commit writes every pending notification with its children. Inline
// children are delivered right before their insert. Deferred children are
// inserted untouched and picked up by AfterCommit.
func (s *Service) Commit(ctx context.Context, tx *gorm.DB, host Notifyable) ([]*Notification, error) {
	repo := s.repo.WithTx(tx)
	settings := s.env.settings()
	logg := s.env.logger()

	var out []*Notification
	for _, n := range host.Notifications().Pending() {
		n.NotifyableType = host.NotifyableType()
		n.NotifyableID = host.NotifyableID()
		if strings.TrimSpace(n.NotifyableID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifyable id required")
		}
		ctx := logg.WithNotifyable(ctx, n.NotifyableType, n.NotifyableID)

		row := n.toModel()
		if err := repo.CreateNotification(ctx, row); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}
		n.ID = row.ID
		n.CreatedAt, n.UpdatedAt = row.CreatedAt, row.UpdatedAt

		for _, sms := range n.SMS {
			sms.NotificationID = n.ID
			sms.deferred = resolvePlan(enums.ChannelSMS, sms.override, host, settings)
			if sms.deferred == nil {
				if err := s.deliverSMS(ctx, sms); err != nil {
					return nil, err
				}
			}
			smsRow := sms.toModel()
			if err := repo.CreateSMS(ctx, smsRow); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sms notification")
			}
			sms.ID = smsRow.ID
			sms.CreatedAt, sms.UpdatedAt = smsRow.CreatedAt, smsRow.UpdatedAt
		}

		for _, email := range n.Emails {
			email.NotificationID = n.ID
			email.deferred = resolvePlan(enums.ChannelEmail, email.override, host, settings)
			if email.deferred == nil {
				if err := s.deliverEmail(ctx, email); err != nil {
					return nil, err
				}
			}
			emailRow := email.toModel()
			if err := repo.CreateEmail(ctx, emailRow); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create email notification")
			}
			email.ID = emailRow.ID
			email.CreatedAt, email.UpdatedAt = emailRow.CreatedAt, emailRow.UpdatedAt
		}
		out = append(out, n)
	}
	return out, nil
}

// AfterCommit marks the notifications persisted and enqueues their deferred
// children, recording the enqueue in each child's audit log. Failures of one
// child do not stop the others.
func (s *Service) AfterCommit(ctx context.Context, committed []*Notification) error {
	logg := s.env.logger()
	var errs error
	for _, n := range committed {
		n.persisted = true
		ctx := logg.WithNotifyable(ctx, n.NotifyableType, n.NotifyableID)

		for _, sms := range n.SMS {
			if sms.deferred == nil {
				continue
			}
			plan := sms.deferred
			sms.deferred = nil
			if err := s.enqueueSMS(ctx, sms, plan); err != nil {
				s.recordFailure(logg.WithChannel(ctx, string(enums.ChannelSMS)), enums.ChannelSMS, "enqueue sms delivery", err)
				errs = multierr.Append(errs, err)
				continue
			}
			s.recordEnqueued(enums.ChannelSMS, plan.queue)
			if err := s.repo.UpdateSMS(ctx, sms.ID, sms.deliveryUpdates()); err != nil {
				errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sms enqueue"))
			}
		}

		for _, email := range n.Emails {
			if email.deferred == nil {
				continue
			}
			plan := email.deferred
			email.deferred = nil
			if err := s.enqueueEmail(ctx, email, plan); err != nil {
				s.recordFailure(logg.WithChannel(ctx, string(enums.ChannelEmail)), enums.ChannelEmail, "enqueue email delivery", err)
				errs = multierr.Append(errs, err)
				continue
			}
			s.recordEnqueued(enums.ChannelEmail, plan.queue)
			if err := s.repo.UpdateEmail(ctx, email.ID, email.auditUpdates()); err != nil {
				errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record email enqueue"))
			}
		}
	}
	return errs
}

func (s *Service) deliverSMS(ctx context.Context, sms *SMSNotification) error {
	ctx = s.env.logger().WithChannel(ctx, string(enums.ChannelSMS))
	if err := s.sendSMS(ctx, sms); err != nil {
		s.recordFailure(ctx, enums.ChannelSMS, "sms delivery failed", err)
		return err
	}
	s.recordDelivered(enums.ChannelSMS)
	return nil
}

func (s *Service) deliverEmail(ctx context.Context, email *EmailNotification) error {
	ctx = s.env.logger().WithChannel(ctx, string(enums.ChannelEmail))
	if err := s.sendEmail(ctx, email); err != nil {
		s.recordFailure(ctx, enums.ChannelEmail, "email delivery failed", err)
		return err
	}
	s.recordDelivered(enums.ChannelEmail)
	return nil
}

func (s *Service) recordDelivered(channel enums.Channel) {
	if s.metrics != nil {
		s.metrics.IncDelivered(string(channel))
	}
}

func (s *Service) recordEnqueued(channel enums.Channel, lane string) {
	if s.metrics != nil {
		s.metrics.IncEnqueued(string(channel), lane)
	}
}

func (s *Service) recordFailure(ctx context.Context, channel enums.Channel, msg string, err error) {
	s.env.logger().Error(ctx, msg, err)
	if s.metrics != nil {
		s.metrics.IncFailed(string(channel))
	}
}

// StatusUpdate is a provider status callback. Nil fields are left alone.
type StatusUpdate struct {
	Sid       string
	Status    *string
	ErrorCode *string
}

// UpdateStatus applies a provider status callback to the SMS with the given
// sid.
func (s *Service) UpdateStatus(ctx context.Context, update StatusUpdate) (*SMSNotification, error) {
	sid := strings.TrimSpace(update.Sid)
	if sid == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sms notification not found")
	}

	row, err := s.repo.FindSMSBySid(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sms notification not found").
				WithDetails(map[string]any{"sid": sid})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sms notification")
	}

	updates := map[string]any{}
	if update.Status != nil {
		status, err := enums.ParseSmsStatus(*update.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnprocessable, err, "invalid sms status").
				WithDetails(map[string]any{"sid": sid, "status": *update.Status})
		}
		updates["status"] = status
		row.Status = &status
	}
	if update.ErrorCode != nil {
		code := *update.ErrorCode
		updates["error_code"] = code
		row.ErrorCode = &code
	}

	if err := s.repo.UpdateSMS(ctx, row.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sms status")
	}
	return smsFromModel(row), nil
}

// ListParams selects the notifications of one host record.
type ListParams struct {
	NotifyableType string
	NotifyableID   string
	Limit          int
	Cursor         string
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
}

// List returns a host record's notifications with parsed audit logs, newest
// first.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.NotifyableType) == "" || strings.TrimSpace(params.NotifyableID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifyable type and id required")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := listNotificationsParams{
		NotifyableType: params.NotifyableType,
		NotifyableID:   params.NotifyableID,
		Limit:          pagination.LimitWithBuffer(limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.ListNotifications(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if len(rows) > limit {
		last := rows[limit-1]
		cursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}

	items := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, notificationDTOFromModel(&rows[i]))
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}
