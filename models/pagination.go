package models

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageInput struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

func (p PageInput) normalize() (int, int) {
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

type Page[T any] struct {
	Items    []*T  `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// paginate counts dbCtx and then fetches one page of it in the given order.
func paginate[T any](dbCtx *gorm.DB, input PageInput, order string, preloads ...string) (*Page[T], error) {
	page, size := input.normalize()
	var model T
	var total int64
	if err := dbCtx.Session(&gorm.Session{}).Model(&model).Count(&total).Error; err != nil {
		return nil, err
	}
	results := make([]*T, 0)
	if total > 0 {
		query := dbCtx.Session(&gorm.Session{}).Model(&model)
		for _, p := range preloads {
			query = query.Preload(p)
		}
		if err := query.
			Order(order).
			Offset((page - 1) * size).
			Limit(size).
			Find(&results).Error; err != nil {
			return nil, err
		}
	}
	return &Page[T]{Items: results, Total: total, Page: page, PageSize: size}, nil
}
