package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/storynest/storynest/internal/domain"
)

const (
	profileImagePrefix = "profile-images"
	childImagePrefix   = "child-profiles"
)

var avatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// AvatarObjectKey is prefix/owner/<unix millis>_<file name>.
func AvatarObjectKey(prefix, ownerID, fileName string, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	return fmt.Sprintf("%s/%s/%d_%s", prefix, ownerID, now.UnixMilli(), name)
}

func decodeAvatar(in domain.AvatarUpload) ([]byte, error) {
	if !avatarTypes[in.ContentType] {
		return nil, domain.ValidationError{Field: "contentType", Reason: "unsupported image type"}
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, domain.ValidationError{Field: "fileName", Reason: "file name is required"}
	}
	body, err := base64.StdEncoding.DecodeString(in.ImageContent)
	if err != nil || len(body) == 0 {
		return nil, domain.ValidationError{Field: "imageContent", Reason: "must be non-empty base64"}
	}
	if len(body) > domain.MaxAvatarBytes {
		return nil, domain.ValidationError{Field: "imageContent", Reason: "image too large"}
	}
	return body, nil
}

// UploadAvatar replaces the requester's own profile picture.
func (u *ProfileUsecase) UploadAvatar(ctx context.Context, requesterID string, in domain.AvatarUpload) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.UploadAvatar")
	defer span.End()

	owner, err := u.Get(ctx, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	return u.storeAvatar(ctx, owner, profileImagePrefix, in)
}

// UploadChildAvatar replaces the picture of a child the requester manages.
func (u *ProfileUsecase) UploadChildAvatar(ctx context.Context, requesterID, childID string, in domain.AvatarUpload) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.UploadChildAvatar")
	defer span.End()

	parent, err := u.parentOf(ctx, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	child, err := u.child(ctx, parent, childID)
	if err != nil {
		return domain.Profile{}, err
	}
	return u.storeAvatar(ctx, child, childImagePrefix, in)
}

func (u *ProfileUsecase) DeleteAvatar(ctx context.Context, requesterID string) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.DeleteAvatar")
	defer span.End()

	owner, err := u.Get(ctx, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	return u.clearAvatar(ctx, owner)
}

func (u *ProfileUsecase) DeleteChildAvatar(ctx context.Context, requesterID, childID string) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profile.DeleteChildAvatar")
	defer span.End()

	parent, err := u.parentOf(ctx, requesterID)
	if err != nil {
		return domain.Profile{}, err
	}
	child, err := u.child(ctx, parent, childID)
	if err != nil {
		return domain.Profile{}, err
	}
	return u.clearAvatar(ctx, child)
}

// storeAvatar uploads the image, points the profile at it and then drops the
// previous upload. The profile never references a missing object.
func (u *ProfileUsecase) storeAvatar(ctx context.Context, owner domain.Profile, prefix string, in domain.AvatarUpload) (domain.Profile, error) {
	body, err := decodeAvatar(in)
	if err != nil {
		return domain.Profile{}, err
	}

	key := AvatarObjectKey(prefix, owner.ID, in.FileName, u.now())
	url, err := u.blobs.Put(ctx, key, in.ContentType, body, map[string]string{"ownerId": owner.ID})
	if err != nil {
		return domain.Profile{}, err
	}
	if err := u.store.Update(ctx, domain.CollectionUsers, owner.ID, map[string]any{
		domain.FieldAvatarURL: url,
		domain.FieldAvatarKey: key,
	}); err != nil {
		u.discardBlob(ctx, key)
		return domain.Profile{}, err
	}
	if owner.AvatarKey != "" && owner.AvatarKey != key {
		u.discardBlob(ctx, owner.AvatarKey)
	}

	u.logger.InfoContext(ctx, "avatar stored",
		slog.String("owner", owner.ID),
		slog.String("key", key),
	)
	return u.Get(ctx, owner.ID)
}

func (u *ProfileUsecase) clearAvatar(ctx context.Context, owner domain.Profile) (domain.Profile, error) {
	if owner.AvatarKey != "" {
		if err := u.blobs.Delete(ctx, owner.AvatarKey); err != nil {
			return domain.Profile{}, err
		}
	}
	if err := u.store.Update(ctx, domain.CollectionUsers, owner.ID, map[string]any{
		domain.FieldAvatarURL: "",
		domain.FieldAvatarKey: "",
	}); err != nil {
		return domain.Profile{}, err
	}
	return u.Get(ctx, owner.ID)
}

// discardBlob deletes an object nothing points at anymore. Failures are logged.
func (u *ProfileUsecase) discardBlob(ctx context.Context, key string) {
	if err := u.blobs.Delete(ctx, key); err != nil {
		u.logger.WarnContext(ctx, "avatar cleanup failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
