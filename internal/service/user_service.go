package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/error-99/videocall/internal/auth"
	"github.com/error-99/videocall/internal/domain"
	"github.com/error-99/videocall/internal/repository"
	"github.com/error-99/videocall/lib/logger/sl"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

const minPasswordLength = 8

type UserService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	log    *slog.Logger
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenManager, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, tokens: tokens, log: log}
}

func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	const op = "service.user.register"
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	if name == "" {
		return nil, "", errors.New("name is required")
	}
	if email == "" {
		return nil, "", errors.New("email is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, "", errors.New("password is too short")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return nil, "", err
	}

	user := domain.NewUser(name, email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserEmailExists) {
			return nil, "", ErrEmailTaken
		}
		log.Error("failed to create user", sl.Err(err))
		return nil, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return nil, "", err
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	const op = "service.user.login"
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		log.Error("failed to compare password", sl.Err(err))
		return nil, "", err
	}
	if !match {
		log.Info("wrong password")
		return nil, "", ErrInvalidCredentials
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		log.Error("failed to touch user", sl.Err(err))
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", err
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
