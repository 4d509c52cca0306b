package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录结果
type LoginResponse struct {
	Token string          `json:"token"`
	User  *entity.SysUser `json:"user"`
}

// UserCreateRequest 管理员建用户
type UserCreateRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// ResetPasswordRequest 重置密码
type ResetPasswordRequest struct {
	Username    string `json:"username" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AuthService 账号与令牌
type AuthService struct {
	repo        *repository.UserRepository
	secret      string
	issuer      string
	tokenExpire time.Duration
}

func NewAuthService(repo *repository.UserRepository, secret, issuer string, tokenExpire time.Duration) *AuthService {
	if tokenExpire <= 0 {
		tokenExpire = 24 * time.Hour
	}
	return &AuthService{repo: repo, secret: secret, issuer: issuer, tokenExpire: tokenExpire}
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, bizerr.Unauthorized("用户名或密码错误")
	}
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, bizerr.Forbidden("账号已停用")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, bizerr.Unauthorized("用户名或密码错误")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"uid":  user.ID,
		"name": user.Username,
		"role": user.Role,
		"iss":  s.issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenExpire).Unix(),
		"jti":  fmt.Sprintf("%s-%d", user.ID[:8], now.UnixNano()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user}, nil
}

func (s *AuthService) CreateUser(ctx context.Context, req *UserCreateRequest) (*entity.SysUser, error) {
	existing, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, bizerr.Duplicate("用户名已存在: " + req.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = entity.RoleUser
	}
	user := &entity.SysUser{
		ID:          newID(),
		Username:    req.Username,
		Password:    string(hash),
		DisplayName: req.DisplayName,
		Role:        role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return bizerr.NotFound("用户不存在")
	}
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *AuthService) ListUsers(ctx context.Context) ([]entity.SysUser, error) {
	return s.repo.FindAll(ctx)
}

// EnsureDefaultAdmin 空库启动时补一个默认管理员，首登后应立即改密
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, password string) error {
	count, err := s.repo.Count(ctx)
	if err != nil || count > 0 {
		return err
	}
	_, err = s.CreateUser(ctx, &UserCreateRequest{
		Username:    "admin",
		Password:    password,
		DisplayName: "管理员",
		Role:        entity.RoleAdmin,
	})
	return err
}
