package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/curato/internal/model"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
	"github.com/xxxsen/curato/internal/pkg/timeutil"
	"github.com/xxxsen/curato/internal/repo"
)

const (
	maxTitleLength  = 255
	maxAuthorLength = 255
	maxURLLength    = 1000
	maxGallerySize  = 100
	maxTags         = 50
)

// ContentInput is the canonical shape accepted for creation and update.
type ContentInput struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Body             string   `json:"body"`
	CoverImageURL    string   `json:"cover_image_url"`
	GalleryImageURLs []string `json:"gallery_image_urls"`
	SourceURL        string   `json:"source_url"`
	CategoryID       *string  `json:"category_id"`
	Tags             []string `json:"tags"`
	Author           string   `json:"author"`
	AuthorAvatarURL  string   `json:"author_avatar_url"`
	Published        *bool    `json:"published"`
	Featured         bool     `json:"featured"`
	SortOrder        int      `json:"sort_order"`
}

type ContentService struct {
	contents   *repo.ContentRepo
	comments   *repo.CommentRepo
	categories *repo.CategoryRepo
}

func NewContentService(contents *repo.ContentRepo, comments *repo.CommentRepo, categories *repo.CategoryRepo) *ContentService {
	return &ContentService{contents: contents, comments: comments, categories: categories}
}

func (s *ContentService) CreateContent(ctx context.Context, input ContentInput) (*model.Content, error) {
	content, err := s.buildContent(ctx, input)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	content.ID = newID()
	content.Ctime = now
	content.Mtime = now
	if err := s.contents.Create(ctx, content); err != nil {
		return nil, wrapRepoErr(err)
	}
	return content, nil
}

func (s *ContentService) UpdateContent(ctx context.Context, id string, input ContentInput) (*model.Content, error) {
	current, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	next, err := s.buildContent(ctx, input)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.ViewCount = current.ViewCount
	next.LikeCount = current.LikeCount
	next.Ctime = current.Ctime
	next.Mtime = timeutil.NowUnix()
	if err := s.contents.Update(ctx, next); err != nil {
		return nil, wrapRepoErr(err)
	}
	return next, nil
}

func (s *ContentService) GetContent(ctx context.Context, id string, includeUnpublished bool) (*model.Content, error) {
	content, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	if !content.Published && !includeUnpublished {
		return nil, appErr.ErrNotFound
	}
	return content, nil
}

// ViewContent returns a published content and counts the view.
func (s *ContentService) ViewContent(ctx context.Context, id string) (*model.Content, error) {
	content, err := s.GetContent(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.contents.IncrementViewCount(ctx, id, timeutil.NowUnix()); err != nil {
		return nil, wrapRepoErr(err)
	}
	content.ViewCount++
	return content, nil
}

func (s *ContentService) LikeContent(ctx context.Context, id string) (*model.Content, error) {
	if _, err := s.GetContent(ctx, id, false); err != nil {
		return nil, err
	}
	if err := s.contents.IncrementLikeCount(ctx, id, timeutil.NowUnix()); err != nil {
		return nil, wrapRepoErr(err)
	}
	return s.GetContent(ctx, id, false)
}

func (s *ContentService) ListContents(ctx context.Context, filter model.ContentFilter) ([]model.Content, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)
	items, err := s.contents.List(ctx, filter)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return items, nil
}

// DeleteContent removes a content together with its comments.
func (s *ContentService) DeleteContent(ctx context.Context, id string) error {
	if err := s.comments.DeleteByContent(ctx, id); err != nil {
		return wrapRepoErr(err)
	}
	if err := s.contents.Delete(ctx, id); err != nil {
		return wrapRepoErr(err)
	}
	return nil
}

func (s *ContentService) buildContent(ctx context.Context, input ContentInput) (*model.Content, error) {
	if err := validateContentInput(input); err != nil {
		return nil, err
	}
	gallery := make([]string, 0, len(input.GalleryImageURLs))
	for _, u := range input.GalleryImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			gallery = append(gallery, u)
		}
	}
	cover := strings.TrimSpace(input.CoverImageURL)
	if cover == "" && len(gallery) > 0 {
		cover = gallery[0]
	}
	tags := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	var categoryID *string
	if input.CategoryID != nil && strings.TrimSpace(*input.CategoryID) != "" {
		id := strings.TrimSpace(*input.CategoryID)
		if _, err := s.categories.GetByID(ctx, id); err != nil {
			if appErr.IsNotFound(err) {
				return nil, fmt.Errorf("%w: category %s does not exist", appErr.ErrValidation, id)
			}
			return nil, wrapRepoErr(err)
		}
		categoryID = &id
	}
	published := true
	if input.Published != nil {
		published = *input.Published
	}
	return &model.Content{
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Body:             input.Body,
		CoverImageURL:    cover,
		GalleryImageURLs: gallery,
		SourceURL:        strings.TrimSpace(input.SourceURL),
		CategoryID:       categoryID,
		Tags:             tags,
		Author:           strings.TrimSpace(input.Author),
		AuthorAvatarURL:  strings.TrimSpace(input.AuthorAvatarURL),
		Published:        published,
		Featured:         input.Featured,
		SortOrder:        input.SortOrder,
	}, nil
}

func validateContentInput(input ContentInput) error {
	if utf8.RuneCountInString(strings.TrimSpace(input.Title)) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", appErr.ErrValidation, maxTitleLength)
	}
	if utf8.RuneCountInString(strings.TrimSpace(input.Author)) > maxAuthorLength {
		return fmt.Errorf("%w: author exceeds %d characters", appErr.ErrValidation, maxAuthorLength)
	}
	if len(input.GalleryImageURLs) > maxGallerySize {
		return fmt.Errorf("%w: gallery exceeds %d images", appErr.ErrValidation, maxGallerySize)
	}
	if len(input.Tags) > maxTags {
		return fmt.Errorf("%w: more than %d tags", appErr.ErrValidation, maxTags)
	}
	urls := append([]string{input.CoverImageURL, input.SourceURL, input.AuthorAvatarURL}, input.GalleryImageURLs...)
	for _, u := range urls {
		if len(strings.TrimSpace(u)) > maxURLLength {
			return fmt.Errorf("%w: url exceeds %d characters", appErr.ErrValidation, maxURLLength)
		}
	}
	return nil
}

// wrapRepoErr tags persistence failures; not-found stays a plain lookup miss.
func wrapRepoErr(err error) error {
	if err == nil || errors.Is(err, appErr.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", appErr.ErrRepository, err)
}
