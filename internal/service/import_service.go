package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/curato/internal/media"
	"github.com/xxxsen/curato/internal/model"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
	"github.com/xxxsen/curato/internal/pkg/timeutil"
)

const (
	ImportMethodJSON = "json"
	ImportMethodLink = "link"

	unknownTitle = "Unknown"
)

type ContentWriter interface {
	CreateContent(ctx context.Context, input ContentInput) (*model.Content, error)
}

type CommentWriter interface {
	CreateComment(ctx context.Context, input CommentInput) (*model.Comment, error)
}

type ImageRelocator interface {
	RelocateOne(ctx context.Context, sourceURL string, opts media.Options) (string, error)
	RelocateMany(ctx context.Context, urls []string, opts media.Options) ([]string, error)
}

type ImportRunStore interface {
	Create(ctx context.Context, run *model.ImportRun) error
	ListRecent(ctx context.Context, limit int) ([]model.ImportRun, error)
}

type ImportOptions struct {
	AutoRelocateImages bool
	// CategoryID applies to records that carry no category of their own.
	CategoryID string
	OnProgress func(current, total int)
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{AutoRelocateImages: true}
}

type ImportConfig struct {
	ImagePrefix  string
	AvatarPrefix string
}

// NotImplementedError is returned by the link import path.
type NotImplementedError struct {
	URL  string
	Hint string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("link import of %s requires a scraping service that is not configured", e.URL)
}

func (e *NotImplementedError) Unwrap() error {
	return appErr.ErrNotImplemented
}

type ImportService struct {
	contents     ContentWriter
	comments     CommentWriter
	relocator    ImageRelocator
	runs         ImportRunStore
	imagePrefix  string
	avatarPrefix string
}

func NewImportService(contents ContentWriter, comments CommentWriter, relocator ImageRelocator, runs ImportRunStore, cfg ImportConfig) *ImportService {
	imagePrefix := strings.Trim(cfg.ImagePrefix, "/")
	if imagePrefix == "" {
		imagePrefix = "xiaohongshu"
	}
	avatarPrefix := strings.Trim(cfg.AvatarPrefix, "/")
	if avatarPrefix == "" {
		avatarPrefix = imagePrefix + "/avatars"
	}
	return &ImportService{
		contents:     contents,
		comments:     comments,
		relocator:    relocator,
		runs:         runs,
		imagePrefix:  imagePrefix,
		avatarPrefix: avatarPrefix,
	}
}

// ImportByLink validates the url and reports that single link scraping is unavailable.
func (s *ImportService) ImportByLink(ctx context.Context, url string, categoryID string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: url is required", appErr.ErrMissingParameter)
	}
	logutil.GetLogger(ctx).Info("link import requested",
		zap.String("url", url),
		zap.String("category_id", categoryID),
	)
	return &NotImplementedError{
		URL:  url,
		Hint: "use the JSON batch import or create the content manually",
	}
}

// ImportBatch creates one content per record and then attaches nested
// comments. Comments bind to created contents in creation order, so a
// failed record shifts the binding of later comment lists.
func (s *ImportService) ImportBatch(ctx context.Context, records []RawRecord, opts ImportOptions) (*model.ImportBatchResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.Int("records", len(records)))
	result := &model.ImportBatchResult{
		Errors:     []string{},
		Warnings:   []string{},
		CreatedIDs: []string{},
	}

	queue := make([]string, 0, len(records))
	for idx, record := range records {
		id, warnings, err := s.importRecord(ctx, record, opts)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to import: %s - %v", displayTitle(record), err))
			logger.Warn("import record failed", zap.Int("index", idx), zap.Error(err))
			continue
		}
		result.Succeeded++
		result.CreatedIDs = append(result.CreatedIDs, id)
		queue = append(queue, id)
	}

	for _, record := range records {
		comments := record.Comments()
		if len(comments) == 0 || len(queue) == 0 {
			continue
		}
		contentID := queue[0]
		queue = queue[1:]
		for idx, comment := range comments {
			if err := s.attachComment(ctx, contentID, comment); err != nil {
				logger.Warn("import comment failed",
					zap.String("content_id", contentID),
					zap.Int("comment_index", idx),
					zap.Error(err),
				)
			}
		}
	}

	s.recordRun(ctx, ImportMethodJSON, len(records), result)
	logger.Info("import batch finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

func (s *ImportService) ListRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if s.runs == nil {
		return []model.ImportRun{}, nil
	}
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return runs, nil
}

func (s *ImportService) importRecord(ctx context.Context, record RawRecord, opts ImportOptions) (id string, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", appErr.ErrInternal, r)
		}
	}()
	if !record.IsObject() {
		return "", nil, fmt.Errorf("%w: record must be an object", appErr.ErrValidation)
	}
	input := normalizeRecord(record, opts.CategoryID)
	if err := validateContentInput(input); err != nil {
		return "", nil, err
	}
	if opts.AutoRelocateImages && s.relocator != nil {
		warnings = s.relocateImages(ctx, &input, opts.OnProgress)
	}
	content, err := s.contents.CreateContent(ctx, input)
	if err != nil {
		return "", warnings, err
	}
	return content.ID, warnings, nil
}

func normalizeRecord(record RawRecord, fallbackCategory string) ContentInput {
	cover := record.CoverURL()
	gallery := record.GalleryURLs()
	if len(gallery) > 0 {
		if cover == "" {
			cover = gallery[0]
		}
	} else if cover != "" {
		gallery = []string{cover}
	}
	var categoryID *string
	if id := record.CategoryID(); id != "" {
		categoryID = &id
	} else if fallbackCategory != "" {
		id := fallbackCategory
		categoryID = &id
	}
	published := record.Published()
	return ContentInput{
		Title:            record.Title(),
		Description:      record.Description(),
		Body:             record.Body(),
		CoverImageURL:    cover,
		GalleryImageURLs: gallery,
		SourceURL:        record.SourceURL(),
		CategoryID:       categoryID,
		Tags:             record.Tags(),
		Author:           record.Author(),
		AuthorAvatarURL:  record.AvatarURL(),
		Published:        &published,
		Featured:         record.Featured(),
		SortOrder:        record.SortOrder(),
	}
}

// relocateImages rehosts the gallery, cover and avatar in place. Failures
// keep the original urls and come back as warnings.
func (s *ImportService) relocateImages(ctx context.Context, input *ContentInput, onProgress func(current, total int)) []string {
	warnings := make([]string, 0)
	title := input.Title
	if strings.TrimSpace(title) == "" {
		title = unknownTitle
	}
	if gallery := input.GalleryImageURLs; len(gallery) > 0 {
		relocated, err := s.relocator.RelocateMany(ctx, gallery, media.Options{
			PathPrefix:       s.imagePrefix,
			ToleratesFailure: true,
			OnProgress:       onProgress,
		})
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("%s: image relocation failed, original urls kept: %v", title, err))
		case len(relocated) != len(gallery):
			warnings = append(warnings, fmt.Sprintf("%s: image relocation returned %d of %d urls, original urls kept", title, len(relocated), len(gallery)))
		default:
			for i := range gallery {
				if relocated[i] == gallery[i] {
					warnings = append(warnings, fmt.Sprintf("%s: image %d kept original url %s", title, i+1, gallery[i]))
				}
			}
			if idx := indexOf(gallery, input.CoverImageURL); idx >= 0 {
				input.CoverImageURL = relocated[idx]
			}
			input.GalleryImageURLs = relocated
		}
	}
	if avatar := input.AuthorAvatarURL; avatar != "" {
		relocated, err := s.relocator.RelocateOne(ctx, avatar, media.Options{
			PathPrefix:       s.avatarPrefix,
			ToleratesFailure: true,
		})
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("%s: avatar relocation failed, original url kept: %v", title, err))
		case relocated == avatar:
			warnings = append(warnings, fmt.Sprintf("%s: avatar kept original url %s", title, avatar))
		default:
			input.AuthorAvatarURL = relocated
		}
	}
	return warnings
}

func (s *ImportService) attachComment(ctx context.Context, contentID string, comment RawComment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", appErr.ErrInternal, r)
		}
	}()
	_, err = s.comments.CreateComment(ctx, CommentInput{
		ContentID:   contentID,
		AuthorName:  comment.AuthorName(),
		AuthorEmail: comment.AuthorEmail(),
		Body:        comment.Body(),
		Approved:    true,
	})
	return err
}

func (s *ImportService) recordRun(ctx context.Context, method string, total int, result *model.ImportBatchResult) {
	if s.runs == nil {
		return
	}
	run := &model.ImportRun{
		ID:        newID(),
		Method:    method,
		Total:     total,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Errors:    result.Errors,
		Ctime:     timeutil.NowUnix(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		logutil.GetLogger(ctx).Error("record import run failed", zap.Error(err))
	}
}

func displayTitle(record RawRecord) string {
	if title := strings.TrimSpace(record.Title()); title != "" {
		return title
	}
	return unknownTitle
}

func indexOf(items []string, target string) int {
	if target == "" {
		return -1
	}
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
