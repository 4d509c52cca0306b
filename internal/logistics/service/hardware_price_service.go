package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/leiakito/wuliu-sub000/internal/logistics/bizerr"
	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/excel"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
)

// HardwarePriceRequest 单价维护请求
type HardwarePriceRequest struct {
	ItemName  string     `json:"item_name" binding:"required"`
	Price     *float64   `json:"price"`
	PriceDate *time.Time `json:"price_date"`
	Category  string     `json:"category"`
	Remark    string     `json:"remark"`
}

// HardwarePriceService 型号单价表，批量定价时按型号取最新价
type HardwarePriceService struct {
	repo *repository.HardwarePriceRepository
}

func NewHardwarePriceService(repo *repository.HardwarePriceRepository) *HardwarePriceService {
	return &HardwarePriceService{repo: repo}
}

func (s *HardwarePriceService) Create(ctx context.Context, req *HardwarePriceRequest, operator string) (*entity.HardwarePrice, error) {
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		return nil, bizerr.BadRequest("型号不能为空")
	}
	priceDate := req.PriceDate
	if priceDate == nil {
		today := dateOf(time.Now())
		priceDate = &today
	}
	price := &entity.HardwarePrice{
		ID:        newID(),
		PriceDate: priceDate,
		ItemName:  itemName,
		Category:  req.Category,
		Price:     req.Price,
		Remark:    req.Remark,
		CreatedBy: operator,
	}
	if err := s.repo.Create(ctx, price); err != nil {
		return nil, err
	}
	return price, nil
}

// Import 解析单价表文件并逐行入库，空型号行在解析阶段就被丢弃
func (s *HardwarePriceService) Import(ctx context.Context, r io.Reader, priceDate time.Time, operator string) (int, error) {
	rows, err := excel.ReadHardwarePrices(r, priceDate, operator)
	if err != nil {
		return 0, bizerr.BadRequest("单价表文件无法解析")
	}
	created := 0
	for i := range rows {
		rows[i].ID = newID()
		if err := s.repo.Create(ctx, &rows[i]); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *HardwarePriceService) List(ctx context.Context, page, pageSize int, itemName string) ([]entity.HardwarePrice, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, strings.TrimSpace(itemName))
}

// Latest 型号的当前有效单价
func (s *HardwarePriceService) Latest(ctx context.Context, itemName string) (*entity.HardwarePrice, error) {
	price, err := s.repo.LatestByItemName(ctx, strings.TrimSpace(itemName))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, bizerr.NotFound("型号无单价记录")
	}
	return price, err
}

func (s *HardwarePriceService) Delete(ctx context.Context, id string) error {
	err := s.repo.SoftDelete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return bizerr.NotFound("单价记录不存在")
	}
	return err
}
