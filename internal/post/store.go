// Package post は投稿のライフサイクル（作成・一覧・取得・更新・削除）を提供する。
//
// 変更系の操作は必ず 存在チェック → 所有者チェック → 変更 の順で評価し、
// 所有者でない呼び出しは一切のフィールドを変更せずに失敗する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/picshare/internal/model"
	"github.com/hitoshi/picshare/internal/repository"
	"github.com/hitoshi/picshare/internal/security"
)

const (
	maxFilenameLength = 255

	// 未指定時のデフォルト（元のクライアント互換）
	defaultFilename = "image.jpg"
	defaultMimeType = "image/jpeg"
)

// ImageCodec はワイヤ表現（base64）と保存表現（バイナリ）の変換インターフェース。
type ImageCodec interface {
	DecodeIncoming(data string) ([]byte, error)
	EncodeOutgoing(data []byte) string
}

// CommentLister は投稿に埋め込むコメント一覧の取得インターフェース。
// repository.CommentRepositoryの部分集合として定義する。
type CommentLister interface {
	ListByPost(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}

// Store は投稿のビジネスロジックを提供する。
type Store struct {
	posts         repository.PostRepository
	comments      CommentLister
	codec         ImageCodec
	sanitizer     security.TextSanitizerService
	maxImageBytes int64
}

// NewStore はStoreを生成する。
func NewStore(
	posts repository.PostRepository,
	comments CommentLister,
	codec ImageCodec,
	sanitizer security.TextSanitizerService,
	maxImageBytes int64,
) *Store {
	return &Store{
		posts:         posts,
		comments:      comments,
		codec:         codec,
		sanitizer:     sanitizer,
		maxImageBytes: maxImageBytes,
	}
}

// Summary は投稿と所有者username、コメント一覧を結合した表示用モデル。
type Summary struct {
	model.PostWithAuthor
	Comments []model.CommentWithAuthor
}

// UpdateInput は更新対象フィールドの指定。nilのフィールドは変更されない。
// Imageはワイヤのbase64テキストで、MimeTypeは画像と揃って反映される。
type UpdateInput struct {
	Description *string
	Image       *string
	MimeType    *string
}

// Create は新しい投稿を作成する。
// imageB64とmime_typeは必須（mime_typeは未指定ならデフォルトを補う）。
// descriptionはタグ除去とトリムの上で保存され、空でもよい。
func (s *Store) Create(ctx context.Context, ownerID, filename, description, imageB64, mimeType string) (*model.Post, error) {
	if strings.TrimSpace(imageB64) == "" {
		return nil, model.NewImageRequiredError()
	}

	image, err := s.codec.DecodeIncoming(imageB64)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, model.NewImageRequiredError()
	}
	if s.maxImageBytes > 0 && int64(len(image)) > s.maxImageBytes {
		return nil, model.NewImageTooLargeError(s.maxImageBytes)
	}

	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = defaultFilename
	}
	if utf8.RuneCountInString(filename) > maxFilenameLength {
		return nil, model.NewFilenameTooLongError()
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	p := &model.Post{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Filename:    filename,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(description)),
		Image:       image,
		MimeType:    mimeType,
		CreatedAt:   time.Now(),
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("owner_id", ownerID),
		slog.String("filename", filename),
		slog.Int("image_bytes", len(image)),
	)
	return p, nil
}

// List は全投稿をcreated_at降順で、所有者usernameとコメント一覧付きで返す。
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	posts, err := s.posts.ListWithAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	summaries := make([]Summary, len(posts))
	for i, p := range posts {
		comments, err := s.comments.ListByPost(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments for post %s: %w", p.ID, err)
		}
		summaries[i] = Summary{PostWithAuthor: p, Comments: comments}
	}

	return summaries, nil
}

// Get は指定IDの投稿を所有者username・コメント付きで返す。
// 存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Store) Get(ctx context.Context, id string) (*Summary, error) {
	p, err := s.posts.FindByIDWithAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError()
	}

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return &Summary{PostWithAuthor: *p, Comments: comments}, nil
}

// Update は指定投稿のdescriptionと画像を更新する。
// 評価順序: 存在チェック → 所有者チェック → 入力検証 → 1文のUPDATE。
// 所有者チェックに失敗した場合、いかなるフィールドも変更されない。
// 戻り値は実際に更新されたフィールド名のリスト。
func (s *Store) Update(ctx context.Context, id, requesterID string, in UpdateInput) ([]string, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError()
	}
	if p.OwnerID != requesterID {
		return nil, model.NewForbiddenError()
	}

	if in.Image == nil && in.Description == nil {
		return nil, model.NewNoUpdateFieldsError()
	}

	var (
		updatedFields []string
		image         []byte
		mimeType      *string
		description   *string
	)

	if in.Image != nil {
		image, err = s.codec.DecodeIncoming(*in.Image)
		if err != nil {
			return nil, err
		}
		if len(image) == 0 {
			return nil, model.NewImageRequiredError()
		}
		if s.maxImageBytes > 0 && int64(len(image)) > s.maxImageBytes {
			return nil, model.NewImageTooLargeError(s.maxImageBytes)
		}

		mime := defaultMimeType
		if in.MimeType != nil && strings.TrimSpace(*in.MimeType) != "" {
			mime = strings.TrimSpace(*in.MimeType)
		}
		mimeType = &mime
		updatedFields = append(updatedFields, "image")
	}

	if in.Description != nil {
		desc := strings.TrimSpace(s.sanitizer.Sanitize(*in.Description))
		if desc == "" {
			return nil, model.NewEmptyDescriptionError()
		}
		description = &desc
		updatedFields = append(updatedFields, "description")
	}

	if err := s.posts.Update(ctx, id, description, image, mimeType, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	slog.Info("post updated",
		slog.String("post_id", id),
		slog.String("owner_id", requesterID),
		slog.Any("updated_fields", updatedFields),
	)
	return updatedFields, nil
}

// Delete は指定投稿を削除する。関連コメントはCASCADEで一緒に削除される。
// 評価順序はUpdateと同じく 存在チェック → 所有者チェック → 削除。
func (s *Store) Delete(ctx context.Context, id, requesterID string) error {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return model.NewPostNotFoundError()
	}
	if p.OwnerID != requesterID {
		return model.NewForbiddenError()
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.Info("post deleted",
		slog.String("post_id", id),
		slog.String("owner_id", requesterID),
	)
	return nil
}

// DownloadResult は画像ダウンロードに必要な投稿の属性。
type DownloadResult struct {
	Image    []byte
	Filename string
	MimeType string
}

// Download は指定投稿の画像バイナリと保存されたファイル名・MIMEタイプを返す。
// 存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Store) Download(ctx context.Context, id string) (*DownloadResult, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError()
	}
	return &DownloadResult{
		Image:    p.Image,
		Filename: p.Filename,
		MimeType: p.MimeType,
	}, nil
}

// EncodeImage は保存表現の画像をワイヤ表現（base64）に変換する。
// レスポンス組み立て時にハンドラーから使用する。
func (s *Store) EncodeImage(image []byte) string {
	return s.codec.EncodeOutgoing(image)
}
