package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/storynest/storynest/internal/domain"
)

const (
	DefaultNarrationTTL = 24 * time.Hour
	audioContentType    = "audio/mp3"
)

type NarrationUsecase struct {
	speech SpeechGateway
	cache  AudioCache
	blobs  BlobStore
	store  RecordStore
	ttl    time.Duration
	logger *slog.Logger
}

func NewNarrationUsecase(speech SpeechGateway, cache AudioCache, blobs BlobStore, store RecordStore, ttl time.Duration, logger *slog.Logger) *NarrationUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultNarrationTTL
	}
	return &NarrationUsecase{
		speech: speech,
		cache:  cache,
		blobs:  blobs,
		store:  store,
		ttl:    ttl,
		logger: logger.With(slog.String("module", "narration")),
	}
}

// NarrationCacheKey identifies a synthesis request after defaults are applied.
func NarrationCacheKey(req domain.SpeechRequest) string {
	var b strings.Builder
	b.WriteString(req.Voice)
	b.WriteByte(0)
	b.WriteString(req.LanguageCode)
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(req.SpeakingRate, 'f', -1, 64))
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(req.Pitch, 'f', -1, 64))
	b.WriteByte(0)
	b.WriteString(req.Text)
	sum := xxh3.HashString128(b.String()).Bytes()
	return fmt.Sprintf("%x", sum[:])
}

func withSpeechDefaults(req domain.SpeechRequest) domain.SpeechRequest {
	if req.Voice == "" {
		req.Voice = domain.DefaultVoice
	}
	if req.LanguageCode == "" {
		req.LanguageCode = domain.DefaultLanguageCode
	}
	if req.SpeakingRate == 0 {
		req.SpeakingRate = 1.0
	}
	return req
}

// Synthesize returns base64 MP3 narration of req.Text. cached reports
// whether it came from the cache. Cache errors are logged and ignored.
func (u *NarrationUsecase) Synthesize(ctx context.Context, req domain.SpeechRequest) (audio string, cached bool, err error) {
	ctx, span := tracer.Start(ctx, "Narration.Synthesize")
	defer span.End()

	if strings.TrimSpace(req.Text) == "" {
		return "", false, domain.ValidationError{Field: "text", Reason: "text is required"}
	}
	req = withSpeechDefaults(req)
	key := NarrationCacheKey(req)

	if u.cache != nil {
		hit, ok, err := u.cache.Get(key)
		if err != nil {
			u.logger.WarnContext(ctx, "narration cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return hit, true, nil
		}
	}

	audio, err = u.speech.Synthesize(ctx, req)
	if err != nil {
		return "", false, err
	}

	if u.cache != nil {
		if err := u.cache.Set(key, audio, u.ttl); err != nil {
			u.logger.WarnContext(ctx, "narration cache write failed", slog.String("error", err.Error()))
		}
	}
	return audio, false, nil
}

// AudioObjectKey is where a story's narration is stored.
func AudioObjectKey(userID, storyID string) string {
	return fmt.Sprintf("audio/%s/%s.mp3", userID, storyID)
}

// UploadAudio stores narration for a story and records it in the audios
// collection.
func (u *NarrationUsecase) UploadAudio(ctx context.Context, requesterID string, in domain.AudioUpload) (domain.Audio, error) {
	ctx, span := tracer.Start(ctx, "Narration.UploadAudio")
	defer span.End()

	if requesterID == "" {
		return domain.Audio{}, domain.ErrUnauthorized
	}
	if in.UserID != "" && in.UserID != requesterID {
		return domain.Audio{}, domain.ErrForbidden
	}
	if in.StoryID == "" || strings.ContainsAny(in.StoryID, "/\\") {
		return domain.Audio{}, domain.ValidationError{Field: "storyId", Reason: "invalid story id"}
	}
	body, err := base64.StdEncoding.DecodeString(in.AudioContent)
	if err != nil || len(body) == 0 {
		return domain.Audio{}, domain.ValidationError{Field: "audioContent", Reason: "must be non-empty base64"}
	}

	key := AudioObjectKey(requesterID, in.StoryID)
	url, err := u.blobs.Put(ctx, key, audioContentType, body, map[string]string{
		"userId":  requesterID,
		"storyId": in.StoryID,
	})
	if err != nil {
		return domain.Audio{}, err
	}

	fields := map[string]any{
		domain.FieldUserID:   requesterID,
		domain.FieldStoryID:  in.StoryID,
		domain.FieldAudioURL: url,
		"filename":           in.StoryID + ".mp3",
	}
	if in.Duration > 0 {
		fields["duration"] = in.Duration
	}
	rec, err := u.store.Create(ctx, domain.CollectionAudios, fields)
	if err != nil {
		return domain.Audio{}, err
	}

	u.logger.InfoContext(ctx, "narration uploaded",
		slog.String("story", in.StoryID),
		slog.Int("bytes", len(body)),
	)
	return domain.AudioFromRecord(rec), nil
}
