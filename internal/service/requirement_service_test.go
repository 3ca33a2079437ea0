package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/storage"
)

type mockRequirementRepo struct {
	attachments map[string][]models.RequirementAttachment
	comments    map[string][]models.RequirementComment
	viewed      []string
	statuses    map[string]models.CommentStatus
}

func newMockRequirementRepo() *mockRequirementRepo {
	return &mockRequirementRepo{
		attachments: make(map[string][]models.RequirementAttachment),
		comments:    make(map[string][]models.RequirementComment),
		statuses:    make(map[string]models.CommentStatus),
	}
}

func (m *mockRequirementRepo) Attachments(ctx context.Context, requestID string) ([]models.RequirementAttachment, error) {
	return m.attachments[requestID], nil
}

func (m *mockRequirementRepo) CreateAttachment(ctx context.Context, attachment *models.RequirementAttachment) error {
	m.attachments[attachment.RequestID] = append(m.attachments[attachment.RequestID], *attachment)
	return nil
}

func (m *mockRequirementRepo) MarkAdditionalViewed(ctx context.Context, requestID string) error {
	m.viewed = append(m.viewed, requestID)
	return nil
}

func (m *mockRequirementRepo) Comments(ctx context.Context, attachmentID string) ([]models.RequirementComment, error) {
	return m.comments[attachmentID], nil
}

func (m *mockRequirementRepo) CreateComment(ctx context.Context, comment *models.RequirementComment) error {
	m.comments[comment.AttachmentID] = append(m.comments[comment.AttachmentID], *comment)
	return nil
}

func (m *mockRequirementRepo) UpdateCommentStatus(ctx context.Context, commentID string, status models.CommentStatus) error {
	m.statuses[commentID] = status
	return nil
}

func TestRequirementServiceAttachmentsGrouped(t *testing.T) {
	repo := newMockRequirementRepo()
	repo.attachments["req-1"] = []models.RequirementAttachment{
		{ID: "a1", RequestID: "req-1", RequirementType: "Valid ID"},
		{ID: "a2", RequestID: "req-1", RequirementType: "Authorization Letter"},
		{ID: "a3", RequestID: "req-1", RequirementType: "Valid ID"},
	}
	svc := NewRequirementService(repo, nil, nil, validator.New(), zap.NewNop(), 0)

	groups, err := svc.Attachments(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Valid ID", groups[0].RequirementType)
	assert.Len(t, groups[0].Attachments, 2)
	assert.Equal(t, "Authorization Letter", groups[1].RequirementType)
	assert.Len(t, groups[1].Attachments, 1)
}

func TestRequirementServiceAddComment(t *testing.T) {
	repo := newMockRequirementRepo()
	svc := NewRequirementService(repo, nil, nil, validator.New(), zap.NewNop(), 0)

	comment, err := svc.AddComment(context.Background(), "a1", AddCommentRequest{Comment: "blurred scan"}, Actor{ID: "reg-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CommentStatusPending, comment.Status)
	assert.Equal(t, "reg-1", comment.RegistrarID)
	assert.Len(t, repo.comments["a1"], 1)
}

func TestRequirementServiceAddCommentEmpty(t *testing.T) {
	svc := NewRequirementService(newMockRequirementRepo(), nil, nil, validator.New(), zap.NewNop(), 0)

	_, err := svc.AddComment(context.Background(), "a1", AddCommentRequest{}, Actor{ID: "reg-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequirementServiceUpdateCommentStatus(t *testing.T) {
	repo := newMockRequirementRepo()
	svc := NewRequirementService(repo, nil, nil, validator.New(), zap.NewNop(), 0)

	require.NoError(t, svc.UpdateCommentStatus(context.Background(), "c1", models.CommentStatusResolved))
	assert.Equal(t, models.CommentStatusResolved, repo.statuses["c1"])

	err := svc.UpdateCommentStatus(context.Background(), "c1", models.CommentStatus("bogus"))
	require.Error(t, err)
}

func TestRequirementServiceMarkAdditionalViewedBestEffort(t *testing.T) {
	repo := newMockRequirementRepo()
	svc := NewRequirementService(repo, nil, nil, validator.New(), zap.NewNop(), 0)

	svc.MarkAdditionalViewed(context.Background(), "req-1")
	assert.Equal(t, []string{"req-1"}, repo.viewed)
}

func TestRequirementServiceDownloadAll(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "req-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "req-1", "id.pdf"), []byte("id-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "req-1", "letter.pdf"), []byte("letter-bytes"), 0o644))

	repo := newMockRequirementRepo()
	repo.attachments["req-1"] = []models.RequirementAttachment{
		{ID: "a1", RequestID: "req-1", RequirementType: "Valid ID", FilePath: "req-1/id.pdf"},
		{ID: "a2", RequestID: "req-1", RequirementType: "Authorization Letter", FilePath: "req-1/letter.pdf"},
		{ID: "a3", RequestID: "req-1", RequirementType: "Valid ID", FilePath: "req-1/missing.pdf"},
	}
	svc := NewRequirementService(repo, store, nil, validator.New(), zap.NewNop(), 0)

	result, err := svc.DownloadAll(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, []string{"missing.pdf"}, result.Failed)

	reader, err := zip.NewReader(bytes.NewReader(result.Archive), int64(len(result.Archive)))
	require.NoError(t, err)
	assert.Len(t, reader.File, 2)
}

func TestRequirementServiceSignedAttachmentDownload(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "req-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "req-1", "id.pdf"), []byte("id-bytes"), 0o644))

	repo := newMockRequirementRepo()
	repo.attachments["req-1"] = []models.RequirementAttachment{
		{ID: "a1", RequestID: "req-1", RequirementType: "Valid ID", FilePath: "req-1/id.pdf"},
	}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewRequirementService(repo, store, signer, validator.New(), zap.NewNop(), 0)

	groups, err := svc.Attachments(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	token := groups[0].Attachments[0].DownloadURL
	require.NotEmpty(t, token)

	file, err := svc.OpenAttachment(token)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "id-bytes", string(content))

	_, err = svc.OpenAttachment("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRequirementServiceDownloadAllEmpty(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewRequirementService(newMockRequirementRepo(), store, nil, validator.New(), zap.NewNop(), 0)

	_, err = svc.DownloadAll(context.Background(), "req-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
