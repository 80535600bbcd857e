package mediastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAuthTimeout   = 5 * time.Second
	defaultNotifyTimeout = 5 * time.Second
)

// service implements the Service interface
type service struct {
	content  ContentStore
	metadata MetadataStore
	auth     Authorizer
	notifier Notifier
	log      *slog.Logger

	// objectLocks serializes mutations per (entityID, mediaID);
	// entityLocks additionally serializes avatar supersedes per entity.
	objectLocks *keyLock
	entityLocks *keyLock

	authTimeout   time.Duration
	notifyTimeout time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithContentStore sets the content store for the service
func WithContentStore(store ContentStore) Option {
	return func(s *service) {
		s.content = store
	}
}

// WithMetadataStore sets the metadata store for the service
func WithMetadataStore(store MetadataStore) Option {
	return func(s *service) {
		s.metadata = store
	}
}

// WithAuthorizer sets the external authorizer for the service
func WithAuthorizer(auth Authorizer) Option {
	return func(s *service) {
		s.auth = auth
	}
}

// WithNotifier sets the change notifier for the service
func WithNotifier(notifier Notifier) Option {
	return func(s *service) {
		s.notifier = notifier
	}
}

// WithLogger sets the logger for the service
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		s.log = log
	}
}

// WithAuthTimeout bounds each authorizer call
func WithAuthTimeout(d time.Duration) Option {
	return func(s *service) {
		s.authTimeout = d
	}
}

// WithNotifyTimeout bounds each notifier publish
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *service) {
		s.notifyTimeout = d
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		objectLocks:   newKeyLock(),
		entityLocks:   newKeyLock(),
		authTimeout:   defaultAuthTimeout,
		notifyTimeout: defaultNotifyTimeout,
	}

	for _, option := range options {
		option(s)
	}

	if s.content == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if s.auth == nil {
		s.auth = NewAllowAllAuthorizer()
	}
	if s.notifier == nil {
		s.notifier = NewNoopNotifier()
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	return s, nil
}

func objectKey(entityID, mediaID string) string {
	return entityID + "/" + mediaID
}

// validID reports whether an identifier is usable as a single path element
// of a content-store key. Ids are caller-supplied; a separator or dot
// segment would alias storage paths across keys or escape the store's root.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}

func checkIDs(entityID, mediaID string) error {
	if !validID(entityID) {
		return fmt.Errorf("%w: entity id %q", ErrInvalidID, entityID)
	}
	if !validID(mediaID) {
		return fmt.Errorf("%w: media id %q", ErrInvalidID, mediaID)
	}
	return nil
}

// authorize runs step one of every mutating operation. It fails closed: a
// deny aborts with ErrUnauthorized, an unreachable authorizer with
// ErrAuthUnavailable, and nothing downstream is touched in either case.
func (s *service) authorize(ctx context.Context, auth Auth, defaultResource string) error {
	resource := auth.Resource
	if resource == "" {
		resource = defaultResource
	}

	actx, cancel := context.WithTimeout(ctx, s.authTimeout)
	defer cancel()

	ok, err := s.auth.VerifyRequest(actx, auth.Actor, auth.Credential, resource)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// notify publishes the change event after both stores are consistent. A
// publish failure is logged and reported as a degraded success; the
// committed storage state is correct and is never rolled back.
func (s *service) notify(ctx context.Context, entityID string, kind EventKind, media *Media) bool {
	nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Publish(nctx, entityID, kind, media); err != nil {
		s.log.Warn("change notification failed",
			"entity_id", entityID,
			"media_id", media.ID,
			"event", string(kind),
			"error", err)
		return true
	}
	return false
}

// compensateContent attempts the best-effort content delete after a
// metadata-store failure. A failed compensation leaves orphaned bytes for
// out-of-band reconciliation and is logged, not retried.
func (s *service) compensateContent(ctx context.Context, entityID, mediaID string) {
	if _, err := s.content.Delete(ctx, entityID, mediaID); err != nil {
		s.log.Error("compensating content delete failed; stores are inconsistent",
			"entity_id", entityID,
			"media_id", mediaID,
			"error", err)
	}
}

func (s *service) UploadMedia(ctx context.Context, req UploadMediaRequest) (*Result, error) {
	mediaID := req.MediaID
	if mediaID == "" {
		mediaID = uuid.New().String()
	}
	if err := checkIDs(req.EntityID, mediaID); err != nil {
		return nil, err
	}

	unlock := s.objectLocks.Lock(objectKey(req.EntityID, mediaID))
	defer unlock()

	if err := s.authorize(ctx, req.Auth, fmt.Sprintf("/media/%s/%s", req.EntityID, mediaID)); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, &MediaError{MediaID: mediaID, Op: "upload", Err: err}
	}

	info, err := Probe(data, req.FileName)
	if err != nil {
		return nil, &MediaError{MediaID: mediaID, Op: "upload", Err: err}
	}

	if _, err := s.metadata.GetMedia(ctx, mediaID); err == nil {
		return nil, &MediaError{MediaID: mediaID, Op: "upload", Err: ErrMediaExists}
	} else if !errors.Is(err, ErrMediaNotFound) {
		return nil, &StorageError{Store: "metadata", Key: mediaID, Op: "get", Err: err}
	}

	// Last cancellation point; once the content write starts the
	// operation runs to completion or explicit compensation.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commitCtx := context.WithoutCancel(ctx)

	now := time.Now().UTC()
	media := &Media{
		ID:            mediaID,
		EntityID:      req.EntityID,
		Author:        req.Auth.Actor,
		Title:         req.Title,
		Description:   req.Description,
		FileName:      req.FileName,
		FileExtension: FileExtension(req.FileName),
		MimeType:      info.MimeType,
		FileSize:      info.Size,
		ShaChecksum:   info.ShaChecksum,
		Kind:          info.Kind,
		Width:         info.Width,
		Height:        info.Height,
		Length:        info.Length,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.content.Put(commitCtx, req.EntityID, mediaID, bytes.NewReader(data)); err != nil {
		return nil, &StorageError{Store: "content", Key: objectKey(req.EntityID, mediaID), Op: "put", Err: err}
	}

	if err := s.metadata.StoreMedia(commitCtx, media); err != nil {
		s.compensateContent(commitCtx, req.EntityID, mediaID)
		return nil, &StorageError{Store: "metadata", Key: mediaID, Op: "store", Err: err}
	}

	degraded := s.notify(commitCtx, req.EntityID, EventCreate, media)

	return &Result{Media: media, Degraded: degraded}, nil
}

func (s *service) UpdateMedia(ctx context.Context, req UpdateMediaRequest) (*Result, error) {
	if err := checkIDs(req.EntityID, req.MediaID); err != nil {
		return nil, err
	}

	unlock := s.objectLocks.Lock(objectKey(req.EntityID, req.MediaID))
	defer unlock()

	if err := s.authorize(ctx, req.Auth, fmt.Sprintf("/media/%s/%s", req.EntityID, req.MediaID)); err != nil {
		return nil, err
	}

	media, err := s.getEntityMedia(ctx, req.EntityID, req.MediaID)
	if err != nil {
		return nil, err
	}

	var data []byte
	var info *MediaInfo
	if req.Content != nil {
		data, err = io.ReadAll(req.Content)
		if err != nil {
			return nil, &MediaError{MediaID: req.MediaID, Op: "update", Err: err}
		}

		// The kind and extension are fixed at creation; the replacement
		// bytes are probed under the original file name so that a rename
		// cannot flip the media category.
		info, err = Probe(data, media.FileName)
		if err != nil {
			return nil, &MediaError{MediaID: req.MediaID, Op: "update", Err: err}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commitCtx := context.WithoutCancel(ctx)

	if req.Title != nil {
		media.Title = *req.Title
	}
	if req.Description != nil {
		media.Description = *req.Description
	}
	media.UpdatedAt = time.Now().UTC()

	if info != nil {
		media.FileSize = info.Size
		media.ShaChecksum = info.ShaChecksum
		media.Width = info.Width
		media.Height = info.Height
		media.Length = info.Length
		if req.FileName != "" {
			media.FileName = req.FileName
		}

		if err := s.content.Put(commitCtx, req.EntityID, req.MediaID, bytes.NewReader(data)); err != nil {
			return nil, &StorageError{Store: "content", Key: objectKey(req.EntityID, req.MediaID), Op: "put", Err: err}
		}
	}

	if err := s.metadata.StoreMedia(commitCtx, media); err != nil {
		if info != nil {
			// The object existed before this call, so deleting the
			// replacement bytes would leave the surviving record with
			// nothing behind it. Keep the bytes; the record lags them
			// until reconciled out of band.
			s.log.Error("metadata update failed after content replacement; record lags stored bytes",
				"entity_id", req.EntityID,
				"media_id", req.MediaID,
				"stored_checksum", info.ShaChecksum,
				"error", err)
		}
		return nil, &StorageError{Store: "metadata", Key: req.MediaID, Op: "store", Err: err}
	}

	degraded := s.notify(commitCtx, req.EntityID, EventUpdate, media)

	return &Result{Media: media, Degraded: degraded}, nil
}

func (s *service) SetAvatar(ctx context.Context, req SetAvatarRequest) (*Result, error) {
	mediaID := req.MediaID
	if mediaID == "" {
		mediaID = uuid.New().String()
	}
	if err := checkIDs(req.EntityID, mediaID); err != nil {
		return nil, err
	}

	// Entity lock first: the avatar supersede serializes against every
	// other avatar operation for the entity, then the object lock.
	entityUnlock := s.entityLocks.Lock(req.EntityID)
	defer entityUnlock()

	unlock := s.objectLocks.Lock(objectKey(req.EntityID, mediaID))
	defer unlock()

	if err := s.authorize(ctx, req.Auth, fmt.Sprintf("/%s/avatar", req.EntityID)); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, &MediaError{MediaID: mediaID, Op: "set_avatar", Err: err}
	}

	info, err := Probe(data, req.FileName)
	if err != nil {
		return nil, &MediaError{MediaID: mediaID, Op: "set_avatar", Err: err}
	}

	if _, err := s.metadata.GetMedia(ctx, mediaID); err == nil {
		return nil, &MediaError{MediaID: mediaID, Op: "set_avatar", Err: ErrMediaExists}
	} else if !errors.Is(err, ErrMediaNotFound) {
		return nil, &StorageError{Store: "metadata", Key: mediaID, Op: "get", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commitCtx := context.WithoutCancel(ctx)

	now := time.Now().UTC()
	media := &Media{
		ID:            mediaID,
		EntityID:      req.EntityID,
		Author:        req.Auth.Actor,
		Title:         req.Title,
		Description:   req.Description,
		FileName:      req.FileName,
		FileExtension: FileExtension(req.FileName),
		MimeType:      info.MimeType,
		FileSize:      info.Size,
		ShaChecksum:   info.ShaChecksum,
		Kind:          info.Kind,
		Width:         info.Width,
		Height:        info.Height,
		Length:        info.Length,
		IsAvatar:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.content.Put(commitCtx, req.EntityID, mediaID, bytes.NewReader(data)); err != nil {
		return nil, &StorageError{Store: "content", Key: objectKey(req.EntityID, mediaID), Op: "put", Err: err}
	}

	if err := s.metadata.StoreMedia(commitCtx, media); err != nil {
		s.compensateContent(commitCtx, req.EntityID, mediaID)
		return nil, &StorageError{Store: "metadata", Key: mediaID, Op: "store", Err: err}
	}

	if err := s.metadata.StoreAvatar(commitCtx, media); err != nil {
		// Roll the half-created avatar back so the prior one stays
		// authoritative.
		if derr := s.metadata.DeleteMedia(commitCtx, mediaID); derr != nil {
			s.log.Error("avatar rollback failed; stores are inconsistent",
				"entity_id", req.EntityID, "media_id", mediaID, "error", derr)
		}
		s.compensateContent(commitCtx, req.EntityID, mediaID)
		return nil, &StorageError{Store: "metadata", Key: req.EntityID, Op: "store_avatar", Err: err}
	}

	degraded := s.notify(commitCtx, req.EntityID, EventAvatarChange, media)

	return &Result{Media: media, Degraded: degraded}, nil
}

func (s *service) DeleteMedia(ctx context.Context, req DeleteMediaRequest) (*Result, error) {
	if err := checkIDs(req.EntityID, req.MediaID); err != nil {
		return nil, err
	}

	unlock := s.objectLocks.Lock(objectKey(req.EntityID, req.MediaID))
	defer unlock()

	if err := s.authorize(ctx, req.Auth, fmt.Sprintf("/media/%s/%s", req.EntityID, req.MediaID)); err != nil {
		return nil, err
	}

	media, err := s.getEntityMedia(ctx, req.EntityID, req.MediaID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	commitCtx := context.WithoutCancel(ctx)

	// Deletion reverses the creation order: the metadata record goes
	// first, because a dangling record is easier to detect and retry than
	// unowned bytes.
	if err := s.metadata.DeleteMedia(commitCtx, req.MediaID); err != nil {
		return nil, &StorageError{Store: "metadata", Key: req.MediaID, Op: "delete", Err: err}
	}

	if media.IsAvatar {
		if err := s.metadata.DeleteEntityAvatar(commitCtx, req.EntityID); err != nil && !errors.Is(err, ErrAvatarNotFound) {
			s.log.Warn("avatar unmark failed during delete",
				"entity_id", req.EntityID, "media_id", req.MediaID, "error", err)
		}
	}

	if _, err := s.content.Delete(commitCtx, req.EntityID, req.MediaID); err != nil {
		// The record is gone; the leftover bytes are orphaned but
		// reclaimable out of band.
		s.log.Error("content delete failed; bytes orphaned",
			"entity_id", req.EntityID, "media_id", req.MediaID, "error", err)
	}

	degraded := s.notify(commitCtx, req.EntityID, EventDelete, media)

	return &Result{Media: media, Degraded: degraded}, nil
}

func (s *service) GetMedia(ctx context.Context, entityID, mediaID string) (*Media, error) {
	return s.getEntityMedia(ctx, entityID, mediaID)
}

func (s *service) DownloadMedia(ctx context.Context, entityID, mediaID string) (io.ReadCloser, *Media, error) {
	if err := checkIDs(entityID, mediaID); err != nil {
		return nil, nil, err
	}

	media, err := s.getEntityMedia(ctx, entityID, mediaID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.content.Get(ctx, entityID, mediaID)
	if err != nil {
		return nil, nil, &StorageError{Store: "content", Key: objectKey(entityID, mediaID), Op: "get", Err: err}
	}

	return rc, media, nil
}

func (s *service) GetAvatar(ctx context.Context, entityID string) (*Media, error) {
	if !validID(entityID) {
		return nil, fmt.Errorf("%w: entity id %q", ErrInvalidID, entityID)
	}
	return s.metadata.GetAvatar(ctx, entityID)
}

// getEntityMedia fetches the record and verifies it belongs to the entity
// namespace; a record under a different entity is reported as not found.
func (s *service) getEntityMedia(ctx context.Context, entityID, mediaID string) (*Media, error) {
	media, err := s.metadata.GetMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if media.EntityID != entityID {
		return nil, ErrMediaNotFound
	}
	return media, nil
}
