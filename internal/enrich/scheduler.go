package enrich

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seb1936247/wine-value-finder/internal/cache"
	"github.com/seb1936247/wine-value-finder/internal/model"
	"github.com/seb1936247/wine-value-finder/internal/session"
)

// DefaultWaveSize bounds how many wines are looked up concurrently.
const DefaultWaveSize = 5

// ErrLookupInProgress is returned when enrichment is started for a
// session that is already looking up.
var ErrLookupInProgress = eris.New("lookup already in progress")

// ErrNotReady is returned when enrichment is started for a session that
// has not finished parsing.
var ErrNotReady = eris.New("session has no parsed wines to look up")

// Scheduler batches a session's pending wines into bounded-concurrency
// waves, runs the orchestrator per wine, publishes the session after
// each wave, and runs one retry pass over wines still missing a value
// score.
type Scheduler struct {
	orch     *Orchestrator
	cache    *cache.Cache
	store    *session.Store
	waveSize int
}

// NewScheduler wires the orchestrator, shared cache, and session store.
func NewScheduler(orch *Orchestrator, c *cache.Cache, store *session.Store, waveSize int) *Scheduler {
	if waveSize <= 0 {
		waveSize = DefaultWaveSize
	}
	return &Scheduler{orch: orch, cache: c, store: store, waveSize: waveSize}
}

// Start transitions the session into looking_up and launches the
// enrichment run in the background. A session already looking up is
// rejected with ErrLookupInProgress without touching in-flight state.
// A complete session can re-enter looking_up only after an edit has
// returned at least one wine to pending.
// ctx should be the application lifetime context, not a request context.
func (s *Scheduler) Start(ctx context.Context, sessionID string) error {
	snap, err := s.store.Update(sessionID, func(sess *model.Session) error {
		switch sess.Status {
		case model.SessionStatusLookingUp:
			return ErrLookupInProgress
		case model.SessionStatusParsed:
			sess.Status = model.SessionStatusLookingUp
			return nil
		case model.SessionStatusComplete:
			if len(pendingWines(sess)) == 0 {
				return ErrNotReady
			}
			sess.Status = model.SessionStatusLookingUp
			return nil
		default:
			return ErrNotReady
		}
	})
	if err != nil {
		return err
	}

	go s.run(ctx, snap)
	return nil
}

// run is the single background writer for the session during
// enrichment. Any panic or context failure aborts the session into
// error status; waves already published stay visible.
func (s *Scheduler) run(ctx context.Context, sess *model.Session) {
	log := zap.L().With(zap.String("session", sess.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("enrichment run panicked", zap.Any("panic", r))
			s.fail(sess, fmt.Sprintf("internal error: %v", r))
		}
	}()

	// Initial pass over every pending wine.
	pending := pendingWines(sess)
	log.Info("enrichment started",
		zap.Int("pending", len(pending)),
		zap.Int("wave_size", s.waveSize),
	)
	if err := s.runPass(ctx, sess, pending); err != nil {
		log.Error("enrichment pass failed", zap.Error(err))
		s.fail(sess, err.Error())
		return
	}

	// Retry pass: exactly one more attempt for wines still missing a
	// value score, with their cache entries invalidated so a stale null
	// result is not replayed.
	var retry []int
	for i := range sess.Wines {
		if sess.Wines[i].Enrichment.ValueScore == nil {
			retry = append(retry, i)
			s.cache.Invalidate(sess.Wines[i], sess.Currency)
		}
	}
	if len(retry) > 0 {
		log.Info("retry pass", zap.Int("wines", len(retry)))
		if err := s.runPass(ctx, sess, retry); err != nil {
			log.Error("retry pass failed", zap.Error(err))
			s.fail(sess, err.Error())
			return
		}
	}

	sess.Status = model.SessionStatusComplete
	s.store.Put(sess)
	log.Info("enrichment complete", zap.Int("wines", len(sess.Wines)))
}

// runPass processes the given wine indexes in sequential waves; wines
// within a wave run concurrently. The session snapshot is published
// after every wave so pollers see progress mid-run.
func (s *Scheduler) runPass(ctx context.Context, sess *model.Session, idxs []int) error {
	for start := 0; start < len(idxs); start += s.waveSize {
		end := min(start+s.waveSize, len(idxs))
		wave := idxs[start:end]

		results := make([]model.EnrichmentPayload, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		for i, idx := range wave {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = eris.Errorf("wine lookup panicked: %v", r)
					}
				}()
				results[i] = s.orch.Enrich(gctx, sess.Wines[idx], sess.Currency)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "enrichment cancelled")
		}

		for i, idx := range wave {
			mergePayload(&sess.Wines[idx], results[i])
			Recompute(&sess.Wines[idx])
		}
		s.store.Put(sess)
	}
	return nil
}

// fail aborts the session into error status with the causing message.
func (s *Scheduler) fail(sess *model.Session, msg string) {
	sess.Status = model.SessionStatusError
	sess.Error = msg
	s.store.Put(sess)
}

// pendingWines returns the indexes of wines not yet attempted.
func pendingWines(sess *model.Session) []int {
	var idxs []int
	for i := range sess.Wines {
		st := sess.Wines[i].Enrichment.LookupStatus
		if st == "" || st == model.LookupStatusPending {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// mergePayload folds a lookup payload into the wine's enrichment with
// fill-null-only semantics: a retry result never overwrites an
// already-populated field.
func mergePayload(w *model.WineRecord, p model.EnrichmentPayload) {
	e := &w.Enrichment

	if e.RetailPriceAvg == nil {
		e.RetailPriceAvg = p.RetailPriceAvg
	}
	if e.RetailPriceMin == nil {
		e.RetailPriceMin = p.RetailPriceMin
	}
	if e.CriticScore == nil {
		e.CriticScore = p.CriticScore
	}
	if e.CommunityScore == nil {
		e.CommunityScore = p.CommunityScore
	}
	if e.CommunityReviewCount == nil {
		e.CommunityReviewCount = p.CommunityReviewCount
	}
	if e.VerificationLinks.PriceSourceURL == "" {
		e.VerificationLinks.PriceSourceURL = p.PriceSourceURL
	}
	if e.VerificationLinks.CommunitySourceURL == "" {
		e.VerificationLinks.CommunitySourceURL = p.CommunitySourceURL
	}

	switch {
	case e.DataProvenance == "" || e.DataProvenance == model.ProvenanceNone:
		e.DataProvenance = p.Provenance
	case p.Provenance != model.ProvenanceNone && p.Provenance != e.DataProvenance:
		e.DataProvenance = model.ProvenanceMixed
	}
}
