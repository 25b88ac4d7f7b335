package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/curato/internal/model"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
	"github.com/xxxsen/curato/internal/pkg/timeutil"
	"github.com/xxxsen/curato/internal/repo"
)

const defaultCategoryColor = "#6366f1"

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Active      *bool  `json:"active"`
	SortOrder   int    `json:"sort_order"`
}

type CategoryService struct {
	categories *repo.CategoryRepo
}

func NewCategoryService(categories *repo.CategoryRepo) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", appErr.ErrValidation)
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q", appErr.ErrValidation, input.Slug)
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = defaultCategoryColor
	}
	if !colorPattern.MatchString(color) {
		return nil, fmt.Errorf("%w: invalid color %q", appErr.ErrValidation, input.Color)
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	now := timeutil.NowUnix()
	category := &model.Category{
		ID:          newID(),
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		Color:       color,
		Icon:        strings.TrimSpace(input.Icon),
		Active:      active,
		SortOrder:   input.SortOrder,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, wrapRepoErr(err)
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	items, err := s.categories.List(ctx, activeOnly)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return items, nil
}

func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	category, err := s.categories.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return category, nil
}
