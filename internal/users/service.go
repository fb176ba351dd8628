package users

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/notifyd/internal/notify"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

const (
	WelcomeSubject = "Welcome"
	WelcomeSMS     = "Thanks for signing up."
)

type notifier interface {
	Build(host notify.Notifyable, configure ...func(*notify.Notification)) *notify.Notification
	Save(ctx context.Context, host notify.Notifyable, persistHost func(tx *gorm.DB) error) error
}

// Service registers users and sends their welcome notifications.
type Service struct {
	repo     *Repository
	notifier notifier
	logg     *logger.Logger
}

// NewService wires users dependencies.
func NewService(repo *Repository, n notifier, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if n == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notify service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, notifier: n, logg: logg}, nil
}

// Register creates the user and, in the same save, a welcome email and a
// welcome SMS when a phone number is given. Recipients come from the user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	user := NewUser(email, strings.TrimSpace(input.Phone))
	n := s.notifier.Build(user)
	n.ComposeEmail(WelcomeSubject, notify.EmailOptions{
		Vars: map[string]any{"message": "Your account is ready."},
	})
	if user.Phone != "" {
		n.ComposeSMS(WelcomeSMS, notify.SMSOptions{})
	}

	err := s.notifier.Save(ctx, user, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user.ToModel()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithNotifyable(ctx, NotifyableType, user.NotifyableID())
	s.logg.Info(ctx, "user registered")
	return toDTO(user), nil
}
