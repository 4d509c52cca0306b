package service

import (
	"context"
	"errors"
	"strings"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
)

// AnnouncementCreateRequest 发布公告请求
type AnnouncementCreateRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// AnnouncementService 站内公告
type AnnouncementService struct {
	repo *repository.AnnouncementRepository
}

func NewAnnouncementService(repo *repository.AnnouncementRepository) *AnnouncementService {
	return &AnnouncementService{repo: repo}
}

func (s *AnnouncementService) Create(ctx context.Context, req *AnnouncementCreateRequest, operator string) (*entity.Announcement, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, bizerr.BadRequest("标题不能为空")
	}
	announcement := &entity.Announcement{
		ID:        newID(),
		Title:     req.Title,
		Content:   req.Content,
		CreatedBy: operator,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, err
	}
	return announcement, nil
}

func (s *AnnouncementService) Latest(ctx context.Context, limit int) ([]entity.Announcement, error) {
	return s.repo.FindLatest(ctx, limit)
}

func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return bizerr.NotFound("公告不存在")
	}
	return err
}
