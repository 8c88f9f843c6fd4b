package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/example/vereinsverwaltung/internal/roster"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
	SearchUsers(ctx context.Context, usernameFragment string) ([]User, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,64}$`)

// UserService orchestrates validation, authorization, and persistence for
// club member accounts, and derives the Rangliste projection.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new account for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.Role.CanManageUsers() {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized, true)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return
	}

	now := s.now()
	user = User{
		ID:        s.idGenerator(),
		Username:  normalized.Username,
		Email:     normalized.Email,
		Role:      normalized.Role,
		Active:    normalized.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err = s.users.CreateUser(ctx, user, hash)
	if err != nil {
		user = User{}
		return
	}
	return
}

// UpdateUser applies profile, role, active-flag, and optional password
// changes. Administrators may edit anyone; members only themselves, and
// never their own role or active flag.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	logger := s.loggerWith(ctx, "UpdateUser", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	isSelf := params.Principal.UserID == params.UserID
	if !params.Principal.Role.CanManageUsers() && !isSelf {
		err = ErrUnauthorized
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return
	}

	normalized := normalizeUserInput(params.Input)
	// Self-service edits keep the stored role and active flag.
	if !params.Principal.Role.CanManageUsers() {
		normalized.Role = existing.Role
		normalized.Active = existing.Active
	}
	vErr := validateUserInput(normalized, false)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Username = normalized.Username
	updated.Email = normalized.Email
	updated.Role = normalized.Role
	updated.Active = normalized.Active
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, updated)
	if err != nil {
		user = User{}
		return
	}

	if normalized.Password != "" {
		var hash string
		hash, err = s.hashPassword(normalized.Password)
		if err != nil {
			return
		}
		if err = s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
			return
		}
	}
	return
}

// DeleteUser removes an account when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)

	if !principal.Role.CanManageUsers() {
		logger.ErrorContext(ctx, "user delete rejected", "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		logger.ErrorContext(ctx, "user delete failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

// GetUser returns a single account for the owner or an administrator.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if !principal.Role.CanManageUsers() && principal.UserID != userID {
		return User{}, ErrUnauthorized
	}
	return s.users.GetUser(ctx, userID)
}

// ListUsers returns accounts ordered by username. Administrators see every
// account with full attributes; members receive only active accounts with
// the email redacted, which is all the Rangliste needs.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]User, 0, len(users))
	for _, u := range users {
		if !principal.Role.CanManageUsers() {
			if !u.Active {
				continue
			}
			u.Email = ""
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Username, out[j].Username) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})

	return out, nil
}

// SearchUsers performs an administrator username lookup.
func (s *UserService) SearchUsers(ctx context.Context, principal Principal, usernameFragment string) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.Role.CanManageUsers() {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	fragment := roster.Normalize(usernameFragment)
	if fragment == "" {
		return nil, nil
	}
	return s.users.SearchUsers(ctx, fragment)
}

// Ranking derives the Rangliste over all visible accounts. Every
// authenticated member may read it.
func (s *UserService) Ranking(ctx context.Context, principal Principal) ([]RankedUser, error) {
	users, err := s.ListUsers(ctx, principal)
	if err != nil {
		return nil, err
	}

	views := make([]roster.User, len(users))
	byID := make(map[string]User, len(users))
	for i, u := range users {
		views[i] = u.RosterView()
		byID[u.ID] = u
	}

	ranked := roster.Ranking(views)
	out := make([]RankedUser, len(ranked))
	for i, r := range ranked {
		out[i] = RankedUser{User: byID[r.ID], Rank: r.Rank}
	}
	return out, nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Username: strings.TrimSpace(input.Username),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: input.Password,
		Role:     roster.ParseRole(string(input.Role)),
		Active:   input.Active,
	}
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Username == "" {
		vErr.add("username", "username is required")
	} else if !usernamePattern.MatchString(input.Username) {
		vErr.add("username", "username is invalid")
	}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if requirePassword && input.Password == "" {
		vErr.add("password", "password is required")
	}
	if input.Password != "" && len(input.Password) < 8 {
		vErr.add("password", "password is too short")
	}

	return vErr
}
