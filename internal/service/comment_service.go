package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/curato/internal/model"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
	"github.com/xxxsen/curato/internal/pkg/timeutil"
	"github.com/xxxsen/curato/internal/repo"
)

const (
	DefaultCommentAuthor = "访客"
	DefaultCommentEmail  = "anonymous@example.com"

	maxCommentAuthorLength = 100
	maxCommentBodyLength   = 5000
)

type CommentInput struct {
	ContentID     string  `json:"content_id"`
	AuthorName    string  `json:"author_name"`
	AuthorEmail   string  `json:"author_email"`
	AuthorWebsite string  `json:"author_website"`
	Body          string  `json:"body"`
	ParentID      *string `json:"parent_id"`
	Approved      bool    `json:"-"`
}

type CommentService struct {
	comments *repo.CommentRepo
	contents *repo.ContentRepo
}

func NewCommentService(comments *repo.CommentRepo, contents *repo.ContentRepo) *CommentService {
	return &CommentService{comments: comments, contents: contents}
}

// CreateComment attaches a comment to an existing content. Missing author
// name and email fall back to the guest defaults.
func (s *CommentService) CreateComment(ctx context.Context, input CommentInput) (*model.Comment, error) {
	contentID := strings.TrimSpace(input.ContentID)
	if contentID == "" {
		return nil, fmt.Errorf("%w: content id is required", appErr.ErrValidation)
	}
	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		author = DefaultCommentAuthor
	}
	if utf8.RuneCountInString(author) > maxCommentAuthorLength {
		return nil, fmt.Errorf("%w: author name exceeds %d characters", appErr.ErrValidation, maxCommentAuthorLength)
	}
	email := strings.TrimSpace(input.AuthorEmail)
	if email == "" {
		email = DefaultCommentEmail
	}
	if utf8.RuneCountInString(input.Body) > maxCommentBodyLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", appErr.ErrValidation, maxCommentBodyLength)
	}
	if _, err := s.contents.GetByID(ctx, contentID); err != nil {
		return nil, wrapRepoErr(err)
	}
	var parentID *string
	if input.ParentID != nil && strings.TrimSpace(*input.ParentID) != "" {
		id := strings.TrimSpace(*input.ParentID)
		parentID = &id
	}
	now := timeutil.NowUnix()
	comment := &model.Comment{
		ID:            newID(),
		ContentID:     contentID,
		AuthorName:    author,
		AuthorEmail:   email,
		AuthorWebsite: strings.TrimSpace(input.AuthorWebsite),
		Body:          input.Body,
		Approved:      input.Approved,
		ParentID:      parentID,
		Ctime:         now,
		Mtime:         now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, wrapRepoErr(err)
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, contentID string, approvedOnly bool) ([]model.Comment, error) {
	items, err := s.comments.ListByContent(ctx, contentID, approvedOnly)
	if err != nil {
		return nil, wrapRepoErr(err)
	}
	return items, nil
}
