package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/utils"
)

var tracer = otel.Tracer("usecase")

// Fetch outcome kinds, used as the metrics label.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeFallback  = "fallback"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeInvalid   = "invalid"
)

// FetchObserver receives one observation per reconciling fetch.
type FetchObserver interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, time.Duration) {}

// FetchOutcome describes how a reconciling fetch progressed.
type FetchOutcome struct {
	OwnerKey    string
	GroupKey    string
	Kind        string
	States      []domain.FetchState
	DirectCount int
	GroupCount  int
	Returned    int
}

func (o *FetchOutcome) enter(s domain.FetchState) {
	o.States = append(o.States, s)
}

// Final returns the last state reached.
func (o FetchOutcome) Final() domain.FetchState {
	if len(o.States) == 0 {
		return domain.FetchStateStart
	}
	return o.States[len(o.States)-1]
}

// ReconcilingFetcher assembles the stories visible to one child from the two
// views that can grant visibility: stories tagged with the child and the
// published stories of the child's family.
type ReconcilingFetcher struct {
	store    RecordStore
	logger   *slog.Logger
	observer FetchObserver
}

func NewReconcilingFetcher(store RecordStore, logger *slog.Logger, observer FetchObserver) *ReconcilingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &ReconcilingFetcher{
		store:    store,
		logger:   logger.With(slog.String("module", "reconcile")),
		observer: observer,
	}
}

// FetchStoriesForOwner returns the de-duplicated published stories visible to
// ownerKey, newest first. An unknown owner yields an empty list. An error is
// returned only when the stores could not answer (domain.ErrStoreUnavailable)
// or the caller gave up (domain.ErrCancelled).
func (f *ReconcilingFetcher) FetchStoriesForOwner(ctx context.Context, ownerKey string) ([]domain.Story, error) {
	stories, _, err := f.FetchStoriesForOwnerDetailed(ctx, ownerKey)
	return stories, err
}

// FetchStoriesForOwnerDetailed is FetchStoriesForOwner plus the path taken.
func (f *ReconcilingFetcher) FetchStoriesForOwnerDetailed(ctx context.Context, ownerKey string) ([]domain.Story, FetchOutcome, error) {
	ctx, span := tracer.Start(ctx, "Reconcile.FetchStoriesForOwner")
	defer span.End()

	start := time.Now()
	out := FetchOutcome{OwnerKey: ownerKey}
	out.enter(domain.FetchStateStart)

	stories, err := f.fetch(ctx, ownerKey, &out)

	states := make([]string, 0, len(out.States))
	for _, s := range out.States {
		states = append(states, s.String())
	}
	span.SetAttributes(
		attribute.String("owner", ownerKey),
		attribute.String("group", out.GroupKey),
		attribute.String("outcome", out.Kind),
		attribute.StringSlice("states", states),
		attribute.Int("returned", out.Returned),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	f.observer.ObserveFetch(out.Kind, time.Since(start))

	return stories, out, err
}

func (f *ReconcilingFetcher) fetch(ctx context.Context, ownerKey string, out *FetchOutcome) ([]domain.Story, error) {
	if strings.TrimSpace(ownerKey) == "" {
		out.Kind = OutcomeInvalid
		out.enter(domain.FetchStateFailed)
		return nil, domain.ValidationError{Field: "ownerKey", Reason: "must not be empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, f.cancelled(out, err)
	}

	out.enter(domain.FetchStateResolvingGroup)
	groupKey, found, err := f.resolveGroup(ctx, ownerKey)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, f.cancelled(out, err)
		}
		f.logger.WarnContext(ctx, "group lookup failed, falling back",
			slog.String("owner", ownerKey),
			slog.String("error", err.Error()),
		)
		return f.fallback(ctx, ownerKey, out, err)
	}
	if !found {
		f.logger.InfoContext(ctx, "owner profile not found", slog.String("owner", ownerKey))
		out.Kind = OutcomeEmpty
		out.enter(domain.FetchStateDone)
		return []domain.Story{}, nil
	}
	out.GroupKey = groupKey

	out.enter(domain.FetchStateDualQuerying)
	direct, group, err := f.queryViews(ctx, ownerKey, groupKey)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, f.cancelled(out, err)
		}
		f.logger.WarnContext(ctx, "view query failed, falling back",
			slog.String("owner", ownerKey),
			slog.String("group", groupKey),
			slog.String("error", err.Error()),
		)
		return f.fallback(ctx, ownerKey, out, err)
	}
	out.DirectCount = len(direct)
	out.GroupCount = len(group)

	out.enter(domain.FetchStateMerging)
	merged := utils.NewOrderedKV[domain.Story](len(direct) + len(group))
	for _, r := range direct {
		s := domain.StoryFromRecord(r)
		s.Source = domain.ProvenanceDirect
		merged.SetIfAbsent(s.ID, s)
	}
	for _, r := range group {
		s := domain.StoryFromRecord(r)
		s.Source = domain.ProvenanceGroup
		merged.SetIfAbsent(s.ID, s)
	}

	out.enter(domain.FetchStateFiltering)
	stories := publishedOnly(merged.Values())

	out.enter(domain.FetchStateSorting)
	SortNewestFirst(stories)

	out.Kind = OutcomeOK
	out.Returned = len(stories)
	out.enter(domain.FetchStateDone)
	f.logger.DebugContext(ctx, "stories reconciled",
		slog.String("owner", ownerKey),
		slog.Int("direct", out.DirectCount),
		slog.Int("group", out.GroupCount),
		slog.Int("returned", out.Returned),
	)
	return stories, nil
}

func (f *ReconcilingFetcher) resolveGroup(ctx context.Context, ownerKey string) (string, bool, error) {
	records, err := f.store.Query(ctx, domain.CollectionUsers, []domain.Filter{
		domain.Eq(domain.FieldID, ownerKey),
	})
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	profile := domain.ProfileFromRecord(records[0])
	return profile.FamilyID, true, nil
}

// queryViews issues both views concurrently. A failure in one cancels the
// other through the errgroup context.
func (f *ReconcilingFetcher) queryViews(ctx context.Context, ownerKey, groupKey string) ([]domain.Record, []domain.Record, error) {
	var direct, group []domain.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		direct, err = f.store.Query(gctx, domain.CollectionStories, []domain.Filter{
			domain.Eq(domain.FieldChildID, ownerKey),
			domain.Eq(domain.FieldIsPublished, true),
		})
		return err
	})
	// a profile without a family only sees its direct view
	if groupKey != "" {
		g.Go(func() error {
			var err error
			group, err = f.store.Query(gctx, domain.CollectionStories, []domain.Filter{
				domain.Eq(domain.FieldFamilyID, groupKey),
				domain.Eq(domain.FieldIsPublished, true),
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return direct, group, nil
}

func (f *ReconcilingFetcher) fallback(ctx context.Context, ownerKey string, out *FetchOutcome, cause error) ([]domain.Story, error) {
	out.enter(domain.FetchStateFallbackQuerying)
	if err := ctx.Err(); err != nil {
		return nil, f.cancelled(out, err)
	}

	records, err := f.store.Query(ctx, domain.CollectionStories, []domain.Filter{
		domain.Eq(domain.FieldChildID, ownerKey),
	})
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, f.cancelled(out, err)
		}
		out.Kind = OutcomeFailed
		out.enter(domain.FetchStateFailed)
		f.logger.ErrorContext(ctx, "fallback query failed",
			slog.String("owner", ownerKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("fetch stories for %s: %w (fallback: %w)", ownerKey, cause, err)
	}

	stories := make([]domain.Story, 0, len(records))
	for _, r := range records {
		s := domain.StoryFromRecord(r)
		s.Source = domain.ProvenanceFallback
		stories = append(stories, s)
	}

	out.enter(domain.FetchStateFiltering)
	stories = publishedOnly(stories)

	out.enter(domain.FetchStateSorting)
	SortNewestFirst(stories)

	out.Kind = OutcomeFallback
	out.Returned = len(stories)
	out.enter(domain.FetchStateDone)
	return stories, nil
}

func (f *ReconcilingFetcher) cancelled(out *FetchOutcome, cause error) error {
	out.Kind = OutcomeCancelled
	out.enter(domain.FetchStateFailed)
	if errors.Is(cause, domain.ErrCancelled) {
		return cause
	}
	return domain.Cancelled(cause)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, domain.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// publishedOnly re-checks the published flag; the views already filter on it
// but adapters are not trusted to.
func publishedOnly(stories []domain.Story) []domain.Story {
	out := stories[:0]
	for _, s := range stories {
		if s.IsPublished {
			out = append(out, s)
		}
	}
	return out
}

// SortNewestFirst orders by CreatedAt descending. Missing timestamps count as
// the epoch. Equal timestamps are ordered by ID ascending.
func SortNewestFirst(stories []domain.Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		a, b := sortKey(stories[i].CreatedAt), sortKey(stories[j].CreatedAt)
		if !a.Equal(b) {
			return a.After(b)
		}
		return stories[i].ID < stories[j].ID
	})
}

var epoch = time.Unix(0, 0).UTC()

func sortKey(t time.Time) time.Time {
	if t.IsZero() {
		return epoch
	}
	return t
}
