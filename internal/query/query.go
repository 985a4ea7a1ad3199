// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package query implements the read API over detected drops: filtering,
// substring search, and pagination.
package query

import (
	"strings"

	"github.com/dropwatch/core/internal/db/models"
	"gorm.io/gorm"
)

// DropFilter is the set of optional predicates query_drops accepts.
type DropFilter struct {
	Tld         string
	Date        string // exact YYYY-MM-DD
	DateFrom    string
	DateTo      string
	MinLength   int
	MaxLength   int
	Charset     models.CharsetType
	Substring   string
	MinQuality  *int
	Page        int
	PageSize    int
}

type Page struct {
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	Total      int64                `json:"total"`
	LastPage   int                  `json:"lastPage"`
	Data       []models.DropRecord  `json:"data"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// QueryDrops applies the filter, returning a page of matching DropRecord
// rows ordered newest-first.
func QueryDrops(gdb *gorm.DB, f DropFilter) (*Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := gdb.Model(&models.DropRecord{})

	if f.Tld != "" {
		q = q.Where("tld = ?", strings.ToLower(f.Tld))
	}
	if f.Date != "" {
		q = q.Where("drop_date = ?", f.Date)
	} else {
		if f.DateFrom != "" {
			q = q.Where("drop_date >= ?", f.DateFrom)
		}
		if f.DateTo != "" {
			q = q.Where("drop_date <= ?", f.DateTo)
		}
	}
	if f.MinLength > 0 {
		q = q.Where("length >= ?", f.MinLength)
	}
	if f.MaxLength > 0 {
		q = q.Where("length <= ?", f.MaxLength)
	}
	if f.Charset != "" {
		q = q.Where("charset_type = ?", f.Charset)
	}
	if f.Substring != "" {
		q = q.Where("label LIKE ?", "%"+f.Substring+"%")
	}
	if f.MinQuality != nil {
		q = q.Where("quality_score >= ?", *f.MinQuality)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []models.DropRecord
	offset := (page - 1) * size
	if err := q.Order("drop_date DESC, id DESC").Offset(offset).Limit(size).Find(&rows).Error; err != nil {
		return nil, err
	}

	lastPage := int((total + int64(size) - 1) / int64(size))
	if lastPage < 1 {
		lastPage = 1
	}

	return &Page{Page: page, PageSize: size, Total: total, LastPage: lastPage, Data: rows}, nil
}
