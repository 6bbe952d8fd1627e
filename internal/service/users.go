package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
)

const minPasswordLength = 6

var passwordCost = bcrypt.DefaultCost

// SignUpInput содержит данные для регистрации пользователя.
type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      model.Role
}

// SignUp регистрирует нового пользователя. По умолчанию назначается роль покупателя,
// роль администратора назначить себе нельзя.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if in.FirstName == "" || in.LastName == "" {
		return nil, apperror.BadRequest("Missing required field: name")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.BadRequest("Invalid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.BadRequest("Password is too short")
	}

	if in.Role == "" {
		in.Role = model.RoleCustomer
	}
	if !in.Role.Valid() || in.Role == model.RoleAdmin {
		return nil, apperror.BadRequest("Invalid role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, apperror.Internal("User not saved", err)
	}

	publicID, err := newPublicID()
	if err != nil {
		return nil, apperror.Internal("User not saved", err)
	}
	token, err := newSecureToken()
	if err != nil {
		return nil, apperror.Internal("User not saved", err)
	}

	u := &model.User{
		PublicID:     publicID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		SecureToken:  token,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, apperror.BadRequest("Email already exists")
		}
		return nil, apperror.Internal("User not saved", err)
	}

	return u, nil
}

// Login проверяет email и пароль и возвращает пользователя.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.BadRequest("Bad credentials")
		}
		return nil, apperror.Internal("Login failed", err)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, apperror.BadRequest("Bad credentials")
	}

	return u, nil
}

// UserPatch содержит изменяемые поля профиля; nil означает «не менять».
type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
}

// UpdateUser меняет профиль пользователя. Новый пароль хешируется заново,
// роль и секретный токен не меняются.
func (s *Service) UpdateUser(ctx context.Context, publicID string, p UserPatch) (*model.User, error) {
	var upd repository.UserUpdate

	if p.FirstName != nil {
		name := strings.TrimSpace(*p.FirstName)
		if name == "" {
			return nil, apperror.BadRequest("Missing required field: name")
		}
		upd.FirstName = &name
	}
	if p.LastName != nil {
		name := strings.TrimSpace(*p.LastName)
		if name == "" {
			return nil, apperror.BadRequest("Missing required field: name")
		}
		upd.LastName = &name
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.BadRequest("Invalid email")
		}
		upd.Email = &email
	}
	if p.Password != nil {
		if len(*p.Password) < minPasswordLength {
			return nil, apperror.BadRequest("Password is too short")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*p.Password), passwordCost)
		if err != nil {
			return nil, apperror.Internal("User not saved", err)
		}
		upd.PasswordHash = hash
	}

	u, err := s.repo.UpdateUser(ctx, publicID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, apperror.BadRequest("Email already exists")
		}
		return nil, userLookupError(err)
	}
	return u, nil
}

// DeleteUser помечает пользователя удалённым. Проводки и заказы сохраняются,
// но войти и оформить заказ от его имени больше нельзя.
func (s *Service) DeleteUser(ctx context.Context, publicID string) error {
	if err := s.repo.SoftDeleteUser(ctx, publicID); err != nil {
		return userLookupError(err)
	}
	return nil
}

// GetUser возвращает пользователя по публичному идентификатору.
func (s *Service) GetUser(ctx context.Context, publicID string) (*model.User, error) {
	u, err := s.repo.GetUserByPublicID(ctx, publicID)
	if err != nil {
		return nil, userLookupError(err)
	}
	return u, nil
}

func userLookupError(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.NotFound("User not found")
	}
	return apperror.Internal("User lookup failed", err)
}
