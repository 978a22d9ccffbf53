package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/mq/queue"
	workerpool "github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/mq/worker"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/ledger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/provider"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/scorebook"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/fairness"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/feature"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/intake"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/solver"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/metrics"
)

// RoundRequest carries one batch into an allocation round. An empty
// RoundID gets a generated one.
type RoundRequest struct {
	RoundID string
	Batch   intake.Batch
}

// RunRound executes one allocation round over the request batch and
// returns the committed allocation. Rounds are serialized: a call while
// another round is active fails with ErrRoundInProgress. A cancelled
// round leaves the ledger untouched.
func (s *Service) RunRound(ctx context.Context, req RoundRequest) (*model.Allocation, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}

	if !s.roundMu.TryLock() {
		return nil, ErrRoundInProgress
	}
	defer s.roundMu.Unlock()

	roundID := req.RoundID
	if roundID == "" {
		roundID = uuid.NewString()
	}

	startedAt := time.Now()
	metrics.RecordRoundStarted()
	defer func() {
		metrics.RecordRoundDuration(float64(time.Since(startedAt).Milliseconds()))
	}()

	s.logger.Info(ctx, "round started",
		logger.String("roundID", roundID),
		logger.Int("candidates", len(req.Batch.Candidates)),
		logger.Int("slots", len(req.Batch.Slots)),
	)

	alloc, book, err := s.runRound(ctx, roundID, startedAt, req.Batch)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordRoundCancelled()
			s.logger.Warn(ctx, "round cancelled",
				logger.String("roundID", roundID),
				logger.Error(err),
			)
		} else {
			metrics.RecordRoundFailed()
			s.logger.Error(ctx, "round failed",
				logger.String("roundID", roundID),
				logger.Error(err),
			)
		}
		return nil, err
	}

	s.mu.Lock()
	s.lastAlloc = alloc
	s.lastBook = book
	s.roundsCommitted++
	s.mu.Unlock()

	s.logger.Info(ctx, "round committed",
		logger.String("roundID", roundID),
		logger.Int("assigned", alloc.Stats.Assigned),
		logger.Int("unmatched", alloc.Stats.Unmatched),
		logger.Float64("fillRate", alloc.Stats.FillRate),
	)

	return alloc, nil
}

func (s *Service) runRound(ctx context.Context, roundID string, startedAt time.Time, batch intake.Batch) (*model.Allocation, *scorebook.Book, error) {
	if err := s.resolveSkillVectors(ctx, &batch); err != nil {
		return nil, nil, &RoundError{RoundID: roundID, Stage: StageIntake, Err: err}
	}

	in, err := s.intake.Process(ctx, batch)
	if err != nil {
		return nil, nil, &RoundError{RoundID: roundID, Stage: StageIntake, Err: err}
	}

	book, eligible, err := s.scorePairs(ctx, roundID, in)
	if err != nil {
		return nil, nil, &RoundError{RoundID: roundID, Stage: StageScoring, Err: err}
	}

	schedule, err := s.monitor.Schedule(ctx, in.Slots, batch.Quotas)
	if err != nil {
		rErr := &RoundError{RoundID: roundID, Stage: StageFairness, Err: err}
		var qErr *fairness.QuotaInfeasibleError
		if errors.As(err, &qErr) {
			rErr.Entities = []string{qErr.SlotID}
		}
		return nil, nil, rErr
	}

	if preview := s.monitor.PreviewGreedy(ctx, previewEntries(in, book), in.Slots, schedule); len(preview.Findings) > 0 {
		s.logger.Info(ctx, "quota-blind greedy would break seat bounds",
			logger.String("roundID", roundID),
			logger.Int("findings", len(preview.Findings)),
		)
	}

	solveStart := time.Now()
	res, err := s.solver.Solve(ctx, solver.Input{
		Candidates: in.Candidates,
		Slots:      in.Slots,
		Scores:     book,
		Schedule:   schedule,
	})
	metrics.RecordSolverDuration(float64(time.Since(solveStart).Milliseconds()))
	if err != nil {
		return nil, nil, &RoundError{RoundID: roundID, Stage: StageSolve, Err: err}
	}

	alloc := s.buildAllocation(roundID, startedAt, in, res, book, eligible, schedule)

	report := s.monitor.Disparity(ctx, alloc, in.Candidates)
	alloc.Violations = report.Violations

	if err := s.commitRound(ctx, &alloc, book, schedule); err != nil {
		return nil, nil, err
	}

	s.publishRound(ctx, &alloc, report)
	s.recordRoundMetrics(&alloc, report, schedule)

	return &alloc, book, nil
}

// resolveSkillVectors fills in skill vectors for rows that shipped raw
// skill terms instead of an embedding. Without an extractor such rows
// pass through untouched and fail feature validation at intake.
func (s *Service) resolveSkillVectors(ctx context.Context, batch *intake.Batch) error {
	if s.extractor == nil {
		return nil
	}

	// Resolution writes vectors back into the rows, so detach the row
	// slices from the caller's batch first.
	batch.Candidates = append([]intake.RawCandidate(nil), batch.Candidates...)
	batch.Slots = append([]intake.RawSlot(nil), batch.Slots...)

	var texts []string
	var targets []*feature.Raw
	for i := range batch.Candidates {
		if raw := &batch.Candidates[i].Features; len(raw.Skills) == 0 && len(raw.SkillTerms) > 0 {
			texts = append(texts, strings.Join(raw.SkillTerms, " "))
			targets = append(targets, raw)
		}
	}
	for i := range batch.Slots {
		if raw := &batch.Slots[i].Features; len(raw.Skills) == 0 && len(raw.SkillTerms) > 0 {
			texts = append(texts, strings.Join(raw.SkillTerms, " "))
			targets = append(targets, raw)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.extractor.Extract(ctx, texts)
	if err != nil {
		return fmt.Errorf("resolve skill vectors: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("resolve skill vectors: %w", provider.ErrBadResponse)
	}
	for i, raw := range targets {
		raw.Skills = vectors[i]
	}

	s.logger.Debug(ctx, "skill vectors resolved", logger.Int("rows", len(texts)))
	return nil
}

// scorePairs fans every eligible candidate/slot pair out to a
// round-local worker pool and waits for the scorebook to fill. The
// returned map counts eligible pairs per candidate.
func (s *Service) scorePairs(ctx context.Context, roundID string, in intake.Result) (*scorebook.Book, map[string]int, error) {
	book := scorebook.New()
	eligible := make(map[string]int, len(in.Candidates))

	q := jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	pool := workerpool.NewPool(s.workerCount, q, s.scorer, book)
	pool.Start(ctx)
	defer pool.Stop()

	var wg sync.WaitGroup
	for _, cand := range in.Candidates {
		for _, slot := range in.Slots {
			if !cand.EligibleFor(slot) {
				continue
			}
			eligible[cand.ID]++
			wg.Add(1)
			err := q.Enqueue(ctx, jobqueue.Job{
				RoundID:   roundID,
				Candidate: cand,
				Slot:      slot,
				Done:      wg.Done,
			})
			if err != nil {
				// The job never reached the queue; release its barrier
				// slot and record the pair as failed.
				wg.Done()
				book.MarkFailed(ctx, cand.ID, slot.ID, fmt.Sprintf("enqueue: %v", err))
			}
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Jobs still buffered must release the barrier before the round
		// can unwind.
		q.Drain()
		<-done
		return nil, nil, fmt.Errorf("scoring: %w", ctx.Err())
	}

	_ = q.Close()
	return book, eligible, nil
}

func previewEntries(in intake.Result, book *scorebook.Book) []fairness.Entry {
	var entries []fairness.Entry
	for _, cand := range in.Candidates {
		for _, slot := range in.Slots {
			score, ok := book.Score(cand.ID, slot.ID)
			if !ok {
				continue
			}
			entries = append(entries, fairness.Entry{
				CandidateID: cand.ID,
				SlotID:      slot.ID,
				Category:    cand.Category,
				Score:       score,
			})
		}
	}
	return entries
}

func (s *Service) buildAllocation(roundID string, startedAt time.Time, in intake.Result, res solver.Result, book *scorebook.Book, eligible map[string]int, schedule model.QuotaSchedule) model.Allocation {
	unmatched := make([]model.UnmatchedCandidate, 0, len(in.Excluded)+len(res.Unmatched))
	unmatched = append(unmatched, in.Excluded...)
	for _, u := range res.Unmatched {
		// A candidate whose every eligible pair failed scoring looks
		// edgeless to the solver; surface the real reason.
		if eligible[u.CandidateID] > 0 && book.ScoredFor(u.CandidateID) == 0 {
			u.Reason = model.ReasonScoringFailed
			u.Detail = "all eligible pairs failed scoring"
		}
		unmatched = append(unmatched, u)
	}

	waivers := make([]model.QuotaWaiver, 0, len(schedule.Waived)+len(res.Waivers))
	waivers = append(waivers, schedule.Waived...)
	waivers = append(waivers, res.Waivers...)

	seats := 0
	for _, slot := range in.Slots {
		seats += slot.Capacity
	}

	stats := model.RoundStats{
		Candidates:     len(in.Candidates),
		Slots:          len(in.Slots),
		Seats:          seats,
		Assigned:       len(res.Assignments),
		Unmatched:      len(unmatched),
		Excluded:       len(in.Excluded),
		PairsScored:    book.Len(),
		DegradedScores: book.DegradedCount(),
	}
	if seats > 0 {
		stats.FillRate = float64(stats.Assigned) / float64(seats)
	}
	if len(res.Assignments) > 0 {
		minScore := res.Assignments[0].Score
		total := 0.0
		for _, as := range res.Assignments {
			total += as.Score
			if as.Score < minScore {
				minScore = as.Score
			}
		}
		stats.TotalScore = total
		stats.MeanScore = total / float64(len(res.Assignments))
		stats.MinScore = minScore
	}

	return model.Allocation{
		RoundID:      roundID,
		StartedAt:    startedAt,
		Assignments:  res.Assignments,
		Unmatched:    unmatched,
		Waivers:      waivers,
		Stats:        stats,
		ConfigDigest: s.configDigest,
	}
}

// commitRound writes the round to the audit ledger: one record per
// assignment, unmatched candidate and waiver, closed by a round-commit
// record whose hash seals the chain.
func (s *Service) commitRound(ctx context.Context, alloc *model.Allocation, book *scorebook.Book, schedule model.QuotaSchedule) error {
	// Nothing reaches the ledger once the round is cancelled.
	if err := ctx.Err(); err != nil {
		return &RoundError{RoundID: alloc.RoundID, Stage: StageCommit, Err: err}
	}

	alloc.CommittedAt = time.Now()

	fills := make(map[string]map[model.Category]int)
	for _, as := range alloc.Assignments {
		rec := ledger.Record{
			RoundID:     alloc.RoundID,
			Kind:        ledger.KindAssignment,
			CandidateID: as.CandidateID,
			SlotID:      as.SlotID,
			Phase:       as.Phase,
		}
		if ps, err := book.Get(ctx, as.CandidateID, as.SlotID); err == nil {
			rec.PairScore = &ps
		}
		if as.Reserved {
			if fills[as.SlotID] == nil {
				fills[as.SlotID] = make(map[model.Category]int)
			}
			fills[as.SlotID][as.Category]++
			bounds, _ := schedule.BoundsFor(as.SlotID, as.Category)
			rec.Quota = &ledger.QuotaState{
				Category: as.Category,
				Floor:    bounds.Floor,
				Ceiling:  bounds.Ceiling,
				Filled:   fills[as.SlotID][as.Category],
			}
		}
		if _, err := s.audit.Append(ctx, rec); err != nil {
			return &RoundError{RoundID: alloc.RoundID, Stage: StageCommit, Entities: []string{as.CandidateID}, Err: err}
		}
	}

	for _, u := range alloc.Unmatched {
		rec := ledger.Record{
			RoundID:     alloc.RoundID,
			Kind:        ledger.KindUnmatched,
			CandidateID: u.CandidateID,
			Reason:      u.Reason,
			Detail:      u.Detail,
		}
		if _, err := s.audit.Append(ctx, rec); err != nil {
			return &RoundError{RoundID: alloc.RoundID, Stage: StageCommit, Entities: []string{u.CandidateID}, Err: err}
		}
	}

	for _, w := range alloc.Waivers {
		rec := ledger.Record{
			RoundID: alloc.RoundID,
			Kind:    ledger.KindWaiver,
			SlotID:  w.SlotID,
			Reason:  w.Reason,
			Quota: &ledger.QuotaState{
				Category: w.Category,
				Floor:    w.Required,
				Filled:   w.Filled,
			},
		}
		if _, err := s.audit.Append(ctx, rec); err != nil {
			return &RoundError{RoundID: alloc.RoundID, Stage: StageCommit, Entities: []string{w.SlotID}, Err: err}
		}
	}

	closing := ledger.Record{
		RoundID: alloc.RoundID,
		Kind:    ledger.KindRoundCommitted,
		Detail: fmt.Sprintf("assigned %d of %d candidates across %d slots",
			alloc.Stats.Assigned, alloc.Stats.Candidates, alloc.Stats.Slots),
	}
	if _, err := s.audit.Append(ctx, closing); err != nil {
		return &RoundError{RoundID: alloc.RoundID, Stage: StageCommit, Err: err}
	}

	return nil
}

// publishRound pushes round events to subscribers. The ledger is the
// source of truth; publish failures are logged, never fatal.
func (s *Service) publishRound(ctx context.Context, alloc *model.Allocation, report fairness.DisparityReport) {
	if err := s.publisher.PublishRoundCommitted(ctx, *alloc); err != nil {
		s.logger.Warn(ctx, "round publish failed",
			logger.String("roundID", alloc.RoundID),
			logger.Error(err),
		)
	}
	if err := s.publisher.PublishDisparity(ctx, alloc.RoundID, report); err != nil {
		s.logger.Warn(ctx, "disparity publish failed",
			logger.String("roundID", alloc.RoundID),
			logger.Error(err),
		)
	}
}

func (s *Service) recordRoundMetrics(alloc *model.Allocation, report fairness.DisparityReport, schedule model.QuotaSchedule) {
	metrics.RecordRoundCommitted(alloc.CommittedAt)
	metrics.RecordAssignments(len(alloc.Assignments))
	for _, u := range alloc.Unmatched {
		metrics.RecordUnmatched(u.Reason)
	}
	metrics.UpdateLastFillRate(alloc.Stats.FillRate)
	metrics.UpdateLastMeanScore(alloc.Stats.MeanScore)

	for range alloc.Waivers {
		metrics.RecordQuotaWaiver()
	}

	required := 0
	for slotID := range schedule.Bounds {
		required += schedule.FloorTotal(slotID)
	}
	filled := 0
	for _, as := range alloc.Assignments {
		if as.Reserved {
			filled++
		}
	}
	metrics.UpdateReservedSeats(required, filled)

	for _, r := range report.Rates {
		metrics.UpdatePlacementRate(string(r.Category), r.Scope, r.Rate)
	}
	for _, v := range report.Violations {
		metrics.RecordFairnessViolation(string(v.Category))
	}
}
