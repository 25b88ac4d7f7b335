package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/curato/internal/media"
	"github.com/xxxsen/curato/internal/model"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

type fakeContents struct {
	created []ContentInput
	ids     []string
	failOn  map[string]error
}

func (f *fakeContents) CreateContent(ctx context.Context, input ContentInput) (*model.Content, error) {
	if err, ok := f.failOn[input.Title]; ok {
		return nil, err
	}
	id := fmt.Sprintf("content-%d", len(f.created)+1)
	f.created = append(f.created, input)
	f.ids = append(f.ids, id)
	return &model.Content{ID: id, Title: input.Title}, nil
}

type fakeComments struct {
	created []CommentInput
	failOn  string
}

func (f *fakeComments) CreateComment(ctx context.Context, input CommentInput) (*model.Comment, error) {
	if f.failOn != "" && input.Body == f.failOn {
		return nil, errors.New("comment insert failed")
	}
	f.created = append(f.created, input)
	return &model.Comment{ID: fmt.Sprintf("comment-%d", len(f.created)), ContentID: input.ContentID}, nil
}

// fakeRelocator rehosts every url except those listed in keep, which come
// back unchanged the way a tolerated failure does.
type fakeRelocator struct {
	keep     map[string]bool
	manyErr  error
	prefixes []string
	calls    int
}

func (f *fakeRelocator) rehost(src, prefix string) string {
	if f.keep[src] {
		return src
	}
	return "https://cdn.example.com/" + prefix + "/" + src[strings.LastIndex(src, "/")+1:]
}

func (f *fakeRelocator) RelocateOne(ctx context.Context, src string, opts media.Options) (string, error) {
	f.calls++
	f.prefixes = append(f.prefixes, opts.PathPrefix)
	return f.rehost(src, opts.PathPrefix), nil
}

func (f *fakeRelocator) RelocateMany(ctx context.Context, urls []string, opts media.Options) ([]string, error) {
	f.prefixes = append(f.prefixes, opts.PathPrefix)
	if f.manyErr != nil {
		return nil, f.manyErr
	}
	out := make([]string, 0, len(urls))
	for i, u := range urls {
		f.calls++
		out = append(out, f.rehost(u, opts.PathPrefix))
		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(urls))
		}
	}
	return out, nil
}

type fakeRuns struct {
	runs []model.ImportRun
	err  error
}

func (f *fakeRuns) Create(ctx context.Context, run *model.ImportRun) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRuns) ListRecent(ctx context.Context, limit int) ([]model.ImportRun, error) {
	return f.runs, nil
}

type importFixture struct {
	contents  *fakeContents
	comments  *fakeComments
	relocator *fakeRelocator
	runs      *fakeRuns
	svc       *ImportService
}

func newImportFixture() *importFixture {
	f := &importFixture{
		contents:  &fakeContents{failOn: map[string]error{}},
		comments:  &fakeComments{},
		relocator: &fakeRelocator{keep: map[string]bool{}},
		runs:      &fakeRuns{},
	}
	f.svc = NewImportService(f.contents, f.comments, f.relocator, f.runs, ImportConfig{
		ImagePrefix:  "xiaohongshu",
		AvatarPrefix: "xiaohongshu/avatars",
	})
	return f
}

func mustRecords(t *testing.T, raw string) []RawRecord {
	t.Helper()
	records, err := ParseRecords([]byte(raw))
	require.NoError(t, err)
	return records
}

func TestImportBatchGalleryCover(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"T","imageUrls":["https://x/a.jpg","https://x/b.jpg"]}]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 0, result.Failed)
	require.Len(t, f.contents.created, 1)
	got := f.contents.created[0]
	require.Equal(t, []string{
		"https://cdn.example.com/xiaohongshu/a.jpg",
		"https://cdn.example.com/xiaohongshu/b.jpg",
	}, got.GalleryImageURLs)
	require.Equal(t, "https://cdn.example.com/xiaohongshu/a.jpg", got.CoverImageURL)
}

func TestImportBatchSingleCover(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"T","imageUrl":"https://x/a.jpg"}]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	got := f.contents.created[0]
	require.Equal(t, []string{"https://cdn.example.com/xiaohongshu/a.jpg"}, got.GalleryImageURLs)
	require.Equal(t, "https://cdn.example.com/xiaohongshu/a.jpg", got.CoverImageURL)
}

func TestImportBatchExplicitCoverOutsideGallery(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"T","cover":"https://y/c.jpg","imageUrls":["https://x/a.jpg"]}]`)

	_, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	got := f.contents.created[0]
	require.Equal(t, "https://y/c.jpg", got.CoverImageURL)
	require.Equal(t, []string{"https://cdn.example.com/xiaohongshu/a.jpg"}, got.GalleryImageURLs)
}

func TestImportBatchToleratedRelocationFailure(t *testing.T) {
	f := newImportFixture()
	f.relocator.keep["not a url"] = true
	records := mustRecords(t, `[{"title":"T","imageUrl":"not a url"}]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 0, result.Failed)
	got := f.contents.created[0]
	require.Equal(t, "not a url", got.CoverImageURL)
	require.Equal(t, []string{"not a url"}, got.GalleryImageURLs)
	require.Len(t, result.Warnings, 1)
}

func TestImportBatchRelocationErrorKeepsOriginals(t *testing.T) {
	f := newImportFixture()
	f.relocator.manyErr = errors.New("storage offline")
	records := mustRecords(t, `[{"title":"T","imageUrls":["https://x/a.jpg","https://x/b.jpg"]}]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	got := f.contents.created[0]
	require.Equal(t, []string{"https://x/a.jpg", "https://x/b.jpg"}, got.GalleryImageURLs)
	require.Equal(t, "https://x/a.jpg", got.CoverImageURL)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "storage offline")
}

func TestImportBatchWithoutRelocation(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"T","imageUrls":["https://x/a.jpg"],"avatar":"https://x/u.png"}]`)

	opts := DefaultImportOptions()
	opts.AutoRelocateImages = false
	_, err := f.svc.ImportBatch(context.Background(), records, opts)
	require.NoError(t, err)
	require.Equal(t, 0, f.relocator.calls)
	got := f.contents.created[0]
	require.Equal(t, "https://x/a.jpg", got.CoverImageURL)
	require.Equal(t, "https://x/u.png", got.AuthorAvatarURL)
}

func TestImportBatchAvatarPrefix(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"T","imageUrls":["https://x/a.jpg"],"user":{"nickname":"n","avatar":"https://x/u.png"}}]`)

	_, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	got := f.contents.created[0]
	require.Equal(t, "n", got.Author)
	require.Equal(t, "https://cdn.example.com/xiaohongshu/avatars/u.png", got.AuthorAvatarURL)
	require.Equal(t, []string{"xiaohongshu", "xiaohongshu/avatars"}, f.relocator.prefixes)
}

func TestImportBatchCountsEveryRecord(t *testing.T) {
	f := newImportFixture()
	f.contents.failOn["bad"] = fmt.Errorf("%w: insert failed", appErr.ErrRepository)
	records := mustRecords(t, `[{"title":"a"},{"title":"bad"},7,{"noteTitle":"d"},null]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, len(records), result.Succeeded+result.Failed)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, 3, result.Failed)
	require.Len(t, result.Errors, 3)
	require.True(t, strings.HasPrefix(result.Errors[0], "Failed to import: bad - "))
	require.True(t, strings.HasPrefix(result.Errors[1], "Failed to import: Unknown - "))
	require.Equal(t, []string{"content-1", "content-2"}, result.CreatedIDs)
}

func TestImportBatchAllFailedIsNotAnError(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[1,2]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 0, result.Succeeded)
	require.Equal(t, 2, result.Failed)
}

func TestImportBatchCommentsBindInOrder(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[
		{"title":"one","comments":[{"content":"c1"}]},
		{"title":"two","comments":[{"content":"c2"}]},
		{"title":"three","comments":[{"content":"c3"}]}
	]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 3, result.Succeeded)
	require.Len(t, f.comments.created, 3)
	seen := map[string]bool{}
	for i, c := range f.comments.created {
		require.Equal(t, fmt.Sprintf("c%d", i+1), c.Body)
		require.Equal(t, f.contents.ids[i], c.ContentID)
		require.False(t, seen[c.ContentID])
		seen[c.ContentID] = true
		require.True(t, c.Approved)
	}
}

func TestImportBatchFailedRecordThenComment(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `["broken", {"title":"ok","comments":[{"text":"hello"}]}]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Failed)
	require.Len(t, f.comments.created, 1)
	require.Equal(t, "content-1", f.comments.created[0].ContentID)
	require.Equal(t, "hello", f.comments.created[0].Body)
}

func TestImportBatchCommentsDroppedWhenQueueEmpty(t *testing.T) {
	f := newImportFixture()
	f.contents.failOn["b"] = errors.New("boom")
	records := mustRecords(t, `[
		{"title":"a","comments":[{"text":"for a"}]},
		{"title":"b","comments":[{"text":"for b"}]}
	]`)

	_, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Len(t, f.comments.created, 1)
	require.Equal(t, "for a", f.comments.created[0].Body)
}

func TestImportBatchCommentFailureIsSwallowed(t *testing.T) {
	f := newImportFixture()
	f.comments.failOn = "bad"
	records := mustRecords(t, `[
		{"title":"a","comments":[{"text":"bad"},{"text":"good","nickname":"n"}]},
		{"title":"b","comments":[{"text":"next"}]}
	]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded)
	require.Len(t, f.comments.created, 2)
	require.Equal(t, "good", f.comments.created[0].Body)
	require.Equal(t, "n", f.comments.created[0].AuthorName)
	require.Equal(t, "content-1", f.comments.created[0].ContentID)
	require.Equal(t, "content-2", f.comments.created[1].ContentID)
}

func TestImportBatchEmptyCommentListKeepsQueue(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[
		{"title":"a","comments":[]},
		{"title":"b","comments":[{"text":"x"}]}
	]`)

	_, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Len(t, f.comments.created, 1)
	require.Equal(t, "content-1", f.comments.created[0].ContentID)
}

func TestImportBatchCategoryFallback(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"a"},{"title":"b","categoryId":"own"}]`)

	opts := DefaultImportOptions()
	opts.CategoryID = "batch"
	_, err := f.svc.ImportBatch(context.Background(), records, opts)
	require.NoError(t, err)
	require.Equal(t, "batch", *f.contents.created[0].CategoryID)
	require.Equal(t, "own", *f.contents.created[1].CategoryID)
}

func TestImportBatchInvalidRecordSkipsRelocation(t *testing.T) {
	f := newImportFixture()
	images := make([]string, 0, maxGallerySize+1)
	for i := 0; i <= maxGallerySize; i++ {
		images = append(images, fmt.Sprintf(`"https://x/%d.jpg"`, i))
	}
	records := mustRecords(t, `[
		{"title":"`+strings.Repeat("长", maxTitleLength+1)+`","imageUrls":["https://x/a.jpg"],"avatar":"https://x/u.png"},
		{"title":"big","imageUrls":[`+strings.Join(images, ",")+`]}
	]`)

	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 2, result.Failed)
	require.Zero(t, f.relocator.calls)
	require.Empty(t, f.relocator.prefixes)
	require.Empty(t, f.contents.created)
	for _, msg := range result.Errors {
		require.Contains(t, msg, appErr.ErrValidation.Error())
	}
}

func TestImportBatchLargeBatchReturnsResult(t *testing.T) {
	f := newImportFixture()
	records := make([]RawRecord, 0, 600)
	for i := 0; i < 600; i++ {
		records = append(records, NewRawRecord([]byte(fmt.Sprintf(`{"title":"t%d"}`, i))))
	}
	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 600, result.Succeeded)
	require.Zero(t, result.Failed)
	require.Len(t, f.runs.runs, 1)
}

func TestImportBatchRecordsRun(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"a"},1]`)

	_, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Len(t, f.runs.runs, 1)
	run := f.runs.runs[0]
	require.Equal(t, ImportMethodJSON, run.Method)
	require.Equal(t, 2, run.Total)
	require.Equal(t, 1, run.Succeeded)
	require.Equal(t, 1, run.Failed)

	f.runs.err = errors.New("db down")
	result, err := f.svc.ImportBatch(context.Background(), records, DefaultImportOptions())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
}

func TestImportBatchProgress(t *testing.T) {
	f := newImportFixture()
	records := mustRecords(t, `[{"title":"a","imageUrls":["https://x/1.jpg","https://x/2.jpg"]}]`)

	var calls []int
	opts := DefaultImportOptions()
	opts.OnProgress = func(current, total int) {
		require.Equal(t, 2, total)
		calls = append(calls, current)
	}
	_, err := f.svc.ImportBatch(context.Background(), records, opts)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, calls)
}

func TestImportByLink(t *testing.T) {
	f := newImportFixture()

	err := f.svc.ImportByLink(context.Background(), "", "cat1")
	require.ErrorIs(t, err, appErr.ErrMissingParameter)

	err = f.svc.ImportByLink(context.Background(), "https://x/note/1", "cat1")
	require.ErrorIs(t, err, appErr.ErrNotImplemented)
	var notImpl *NotImplementedError
	require.True(t, errors.As(err, &notImpl))
	require.Equal(t, "https://x/note/1", notImpl.URL)
	require.NotEmpty(t, notImpl.Hint)

	require.Empty(t, f.contents.created)
	require.Zero(t, f.relocator.calls)
	require.Empty(t, f.runs.runs)
}
