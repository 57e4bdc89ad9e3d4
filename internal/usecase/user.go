package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/email"
	"github.com/accountd/accountd/internal/metrics"
	"github.com/accountd/accountd/internal/password"
	"github.com/accountd/accountd/internal/query"
	"github.com/accountd/accountd/internal/repository"
	"github.com/accountd/accountd/internal/token"
	"github.com/google/uuid"
)

type UserUsecase struct {
	users                repository.UserRepository
	tokens               *token.Service
	email                email.Sender
	logger               *slog.Logger
	verificationLinkBase string
	resetLinkBase        string
	now                  func() time.Time
}

func NewUserUsecase(users repository.UserRepository, tokens *token.Service, sender email.Sender,
	verificationLinkBase, resetLinkBase string, logger *slog.Logger) *UserUsecase {
	return &UserUsecase{
		users:                users,
		tokens:               tokens,
		email:                sender,
		logger:               logger.With("component", "user_usecase"),
		verificationLinkBase: verificationLinkBase,
		resetLinkBase:        resetLinkBase,
		now:                  time.Now,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an inactive account and emails the verification link.
// Uniqueness pre-checks give a friendly error; the database unique indexes
// remain the authoritative guard against concurrent registrations.
func (u *UserUsecase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.ToLower(in.Email)

	if _, err := u.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := u.users.FindByUsername(ctx, in.Username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Active:       false,
		CreatedAt:    u.now().UnixMilli(),
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	metrics.RegistrationsTotal.Inc()

	// Fire-and-forget, matching the registration response not waiting on
	// email delivery. Failures are logged, never surfaced to the client.
	go u.sendVerificationEmail(context.WithoutCancel(ctx), user)

	return user, nil
}

type LoginInput struct {
	Email    string
	Username string
	Password string
}

// Login checks credentials, stamps last_login, and issues an access token
// whose freshness marker is derived from the new last_login. Every token
// issued before this login becomes stale.
func (u *UserUsecase) Login(ctx context.Context, in LoginInput) (*domain.User, string, error) {
	var user *domain.User
	var err error
	if in.Email != "" {
		user, err = u.users.FindByEmail(ctx, strings.ToLower(in.Email))
	} else {
		user, err = u.users.FindByUsername(ctx, in.Username)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrLoginNotFound
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if !password.Verify(in.Password, user.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, "", domain.ErrUserNotVerified
	}

	lastLogin := u.now().UnixMilli()
	user, err = u.users.Update(ctx, user.ID, repository.UserUpdate{LastLogin: &lastLogin})
	if err != nil {
		return nil, "", fmt.Errorf("stamp last login: %w", err)
	}

	signed, err := u.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, "", err
	}
	metrics.LoginsTotal.Inc()
	return user, signed, nil
}

// CheckFreshness reports whether the claimed marker matches the user's
// current last_login. A missing user or an account that never logged in
// fails the check; it never returns an error, so the gate can always map a
// failure to 401.
func (u *UserUsecase) CheckFreshness(ctx context.Context, userID string, claimedMarker int64) bool {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return false
	}
	marker, ok := user.FreshnessMarker()
	return ok && marker == claimedMarker
}

// ForgotPassword emails a reset link. Returns ErrUserNotFound when the email
// is unknown; the handler decides how much of that to reveal.
func (u *UserUsecase) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, strings.ToLower(emailAddr))
	if err != nil {
		return err
	}

	resetToken, err := u.tokens.IssueResetToken(user.ID)
	if err != nil {
		return err
	}

	link := u.resetLinkBase + resetToken
	body := fmt.Sprintf(
		`<p>Click the link below to reset your password (expires in 2 hours):</p><p><a href="%s">%s</a></p>`,
		link, link,
	)
	if err := u.email.Send(ctx, user.Email, "Reset Password Account", body); err != nil {
		return err
	}
	metrics.EmailsSentTotal.WithLabelValues("password_reset").Inc()
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (u *UserUsecase) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	claims, err := u.tokens.Verify(rawToken)
	if err != nil {
		return err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return u.users.UpdatePassword(ctx, claims.UserID, hash)
}

// MarkVerified flips the account active. The id comes from the verification
// link's trailing slug.
func (u *UserUsecase) MarkVerified(ctx context.Context, id string) (*domain.User, error) {
	active := true
	return u.users.Update(ctx, id, repository.UserUpdate{Active: &active})
}

func (u *UserUsecase) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return u.users.FindByID(ctx, id)
}

type UpdateInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Active    *bool
}

// Update applies a partial profile update. Password and createdAt are not
// reachable from this path; email/username changes re-validate uniqueness
// excluding the record itself.
func (u *UserUsecase) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	if in.Email != nil {
		lowered := strings.ToLower(*in.Email)
		in.Email = &lowered
		if existing, err := u.users.FindByEmail(ctx, lowered); err == nil && existing.ID != id {
			return nil, domain.ErrEmailTaken
		} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}
	if in.Username != nil {
		if existing, err := u.users.FindByUsername(ctx, *in.Username); err == nil && existing.ID != id {
			return nil, domain.ErrUsernameTaken
		} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("check username: %w", err)
		}
	}

	return u.users.Update(ctx, id, repository.UserUpdate{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Active:    in.Active,
	})
}

func (u *UserUsecase) Delete(ctx context.Context, id string) error {
	return u.users.Delete(ctx, id)
}

type ListResult struct {
	Users        []*domain.User
	Count        int
	NextPage     *int
	PreviousPage *int
}

// List executes a parsed query spec and derives the page markers.
func (u *UserUsecase) List(ctx context.Context, spec query.Spec) (ListResult, error) {
	users, count, err := u.users.List(ctx, spec)
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Users: users, Count: count}
	if spec.Page*spec.Limit < count {
		next := spec.Page + 1
		result.NextPage = &next
	}
	if spec.Page > 1 {
		prev := spec.Page - 1
		result.PreviousPage = &prev
	}
	return result, nil
}

func (u *UserUsecase) sendVerificationEmail(ctx context.Context, user *domain.User) {
	link := u.verificationLinkBase + user.ID
	body := fmt.Sprintf(
		`<p>Hello %s,</p><p>Click the link below to verify your account:</p><p><a href="%s">%s</a></p>`,
		user.Username, link, link,
	)
	if err := u.email.Send(ctx, user.Email, "Verify User Account", body); err != nil {
		u.logger.Error("send verification email", "user_id", user.ID, "error", err)
		return
	}
	metrics.EmailsSentTotal.WithLabelValues("verification").Inc()
}
