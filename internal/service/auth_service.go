package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/oauth"
	"randomblog/internal/observability"
	"randomblog/internal/repository"
	"randomblog/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const (
	// maxUsernameAttempts bounds retries after losing a username insert race.
	maxUsernameAttempts = 3
	fallbackUsername    = "googleuser"
	maxUsernameLength   = 150
)

type AuthService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Signup creates a password account.
func (s *AuthService) Signup(ctx context.Context, username, password, confirmation string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePasswordConfirmation(password, confirmation); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	exists, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewValidationError("A user with that username already exists.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Username: username, Password: string(hashed)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			return nil, models.NewValidationError("A user with that username already exists.")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password. Accounts created through
// Google carry an unusable password and never authenticate here.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("Invalid credentials")

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.HasUsablePassword() {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

// ReconcileGoogleUser maps a Google profile onto a local account, linking by
// case-insensitive email and creating the account on first sign-in.
func (s *AuthService) ReconcileGoogleUser(ctx context.Context, profile *oauth.Profile) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService", "ReconcileGoogleUser")
	defer func() { observability.EndSpan(span, err) }()

	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		return nil, models.NewProtocolError("Google account does not expose an email address.")
	}
	email := strings.TrimSpace(profile.Email)

	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		var created bool
		err = s.userRepo.Transaction(ctx, func(repo repository.UserRepository) error {
			existing, err := repo.GetByEmailFold(ctx, email)
			if err != nil {
				return err
			}
			if existing != nil {
				user = existing
				return syncNames(ctx, repo, existing, profile)
			}

			username, err := resolveUsername(ctx, repo, email)
			if err != nil {
				return err
			}
			user = &models.User{
				Username:  username,
				Email:     email,
				FirstName: profile.GivenName,
				LastName:  profile.FamilyName,
			}
			if err := user.SetUnusablePassword(); err != nil {
				return models.NewInternalError(err)
			}
			created = true
			return repo.Create(ctx, user)
		})

		if err == nil {
			span.SetAttributes(attribute.Bool("user.created", created))
			if created {
				middleware.Logger.InfoContext(ctx, "created account from Google sign-in",
					slog.Uint64("user_id", uint64(user.ID)),
					slog.String("username", user.Username),
				)
			}
			return user, nil
		}
		if !models.IsCode(err, models.CodeConflict) {
			return nil, err
		}
		middleware.Logger.WarnContext(ctx, "username taken during Google sign-in, retrying",
			slog.Int("attempt", attempt),
		)
	}
	return nil, err
}

// syncNames copies non-empty provider names that differ from the stored ones.
func syncNames(ctx context.Context, repo repository.UserRepository, user *models.User, profile *oauth.Profile) error {
	first, last := user.FirstName, user.LastName
	if profile.GivenName != "" && profile.GivenName != first {
		first = profile.GivenName
	}
	if profile.FamilyName != "" && profile.FamilyName != last {
		last = profile.FamilyName
	}
	if first == user.FirstName && last == user.LastName {
		return nil
	}
	if err := repo.UpdateNames(ctx, user.ID, first, last); err != nil {
		return err
	}
	user.FirstName, user.LastName = first, last
	return nil
}

// resolveUsername derives a free username from the email's local part:
// jdoe, jdoe1, jdoe2, ...
func resolveUsername(ctx context.Context, repo repository.UserRepository, email string) (string, error) {
	base := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	if base == "" {
		base = fallbackUsername
	}
	if len(base) > maxUsernameLength-10 {
		base = base[:maxUsernameLength-10]
	}

	candidate := base
	for n := 1; ; n++ {
		exists, err := repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

// SetStaff grants or revokes access to the manage area.
func (s *AuthService) SetStaff(ctx context.Context, username string, staff bool) error {
	if err := s.userRepo.SetStaff(ctx, strings.TrimSpace(username), staff); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "staff flag changed",
		slog.String("username", username),
		slog.Bool("is_staff", staff),
	)
	return nil
}

func (s *AuthService) ListStaff(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListStaff(ctx)
}
