package pipeline

import (
	"context"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nwokike/museum-harvester/internal/adapter"
	"github.com/Nwokike/museum-harvester/internal/archive"
	"github.com/Nwokike/museum-harvester/internal/clock"
	"github.com/Nwokike/museum-harvester/internal/config"
	"github.com/Nwokike/museum-harvester/internal/dataset"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/iiif"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/internal/normalize"
	"github.com/Nwokike/museum-harvester/internal/robots"
	"github.com/Nwokike/museum-harvester/internal/schedule"
	"github.com/Nwokike/museum-harvester/pkg/failure"
	"github.com/Nwokike/museum-harvester/pkg/urlutil"
)

/*
Responsibilities
- Drive one harvest run through its lifecycle: Seeding → Draining →
  (DrainingWithCancellation) → Finished
- Own the work queue and the worker pool; route fetched bytes to the
  archive's adapter and its records to persistence
- Finalize exactly one Summary per run, cancelled or not

Cancellation contract: once the run context is cancelled, no new task
is dequeued; records already produced are flushed; the run still
reaches Finished and reports a summary.
*/

// Submitter is the slice of the scheduler the orchestrator needs.
type Submitter interface {
	Do(ctx context.Context, task archive.FetchTask) schedule.Outcome
	SetHostInterval(host string, interval time.Duration)
}

// storedImage caches one resolved URL's store outcome so the same URL
// appearing under several records costs one download.
type storedImage struct {
	hash string
	path string
}

type Orchestrator struct {
	cfg          config.Config
	registry     *adapter.Registry
	sched        Submitter
	resolver     iiif.Resolver
	constraint   normalize.RecordConstraint
	writer       *dataset.Writer
	images       *dataset.ImageStore
	index        *dataset.ResumeIndex
	metadataSink metadata.MetadataSink
	finalizer    metadata.RunFinalizer
	clk          clock.Clock

	mu          sync.Mutex
	cond        *sync.Cond
	state       State
	queue       []archive.FetchTask
	outstanding int
	visited     map[string]bool
	fatal       failure.ClassifiedError
	summary     Summary

	robotsMu sync.Mutex
	rules    map[string]robots.Rules

	urlMu   sync.Mutex
	byURL   map[string]storedImage
	dlError map[string]bool
}

type Deps struct {
	Registry     *adapter.Registry
	Sched        Submitter
	Resolver     iiif.Resolver
	Constraint   normalize.RecordConstraint
	Writer       *dataset.Writer
	Images       *dataset.ImageStore
	Index        *dataset.ResumeIndex
	MetadataSink metadata.MetadataSink
	Finalizer    metadata.RunFinalizer
	Clock        clock.Clock
}

func NewOrchestrator(cfg config.Config, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:          cfg,
		registry:     deps.Registry,
		sched:        deps.Sched,
		resolver:     deps.Resolver,
		constraint:   deps.Constraint,
		writer:       deps.Writer,
		images:       deps.Images,
		index:        deps.Index,
		metadataSink: deps.MetadataSink,
		finalizer:    deps.Finalizer,
		clk:          deps.Clock,
		state:        StateSeeding,
		visited:      make(map[string]bool),
		rules:        make(map[string]robots.Rules),
		byURL:        make(map[string]storedImage),
		dlError:      make(map[string]bool),
	}
	o.cond = sync.NewCond(&o.mu)
	o.summary.FailuresByKind = make(map[failure.Kind]int)
	o.summary.AttemptsByCount = make(map[int]int)
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the harvest to completion and returns its summary. The
// returned error is non-nil only for aborts (bad archive, bad seed,
// fatal storage failure); cancellation is a normal completion.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	started := o.clk.Now()
	o.summary.RunID = uuid.NewString()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	variant, ok := o.registry.Lookup(o.cfg.ArchiveName())
	if !ok {
		return o.finish(started, false), &RunError{
			Message: o.cfg.ArchiveName(),
			Cause:   ErrCauseUnknownArchive,
		}
	}

	seedTasks, serr := variant.Seed(o.cfg.Seed())
	if serr != nil {
		return o.finish(started, false), &RunError{
			Message: serr.Error(),
			Cause:   ErrCauseSeedRejected,
		}
	}

	o.mu.Lock()
	o.state = StateDraining
	for _, task := range seedTasks {
		if task.Kind == archive.TaskPage {
			canonical := urlutil.Canonicalize(task.URL)
			o.visited[canonical.String()] = true
		}
		o.queue = append(o.queue, task)
		o.outstanding++
	}
	o.mu.Unlock()

	// Cancellation and drain-completion both wake blocked workers.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			o.mu.Lock()
			if o.state == StateDraining {
				o.state = StateDrainingWithCancellation
			}
			o.mu.Unlock()
			o.cond.Broadcast()
		case <-watchDone:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Concurrency(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.work(runCtx, variant, cancel)
		}()
	}
	wg.Wait()
	close(watchDone)

	cancelled := runCtx.Err() != nil

	o.mu.Lock()
	fatal := o.fatal
	o.mu.Unlock()

	summary := o.finish(started, cancelled)
	if fatal != nil {
		return summary, &RunError{Message: fatal.Error(), Cause: ErrCauseStorageFatal}
	}
	return summary, nil
}

// finish flushes persistence, finalizes the summary and records it.
func (o *Orchestrator) finish(started time.Time, cancelled bool) Summary {
	if o.writer != nil {
		if cerr := o.writer.Close(); cerr != nil {
			o.recordError("Orchestrator.finish", cerr, nil)
		}
	}
	if o.index != nil {
		if cerr := o.index.Close(); cerr != nil {
			o.recordError("Orchestrator.finish", cerr, nil)
		}
	}

	o.mu.Lock()
	o.state = StateFinished
	o.summary.Cancelled = cancelled
	o.summary.Duration = o.clk.Now().Sub(started)
	summary := o.summary
	o.mu.Unlock()

	if o.finalizer != nil {
		o.finalizer.RecordFinalRunStats(
			summary.RunID,
			summary.RecordsWritten,
			summary.ImagesStored,
			summary.ImagesDeduplicated,
			summary.ImagesDegraded,
			summary.TasksFailed,
			summary.Duration,
		)
	}
	return summary
}

// work is one worker's loop: dequeue, process, repeat until the run
// drains or cancels.
func (o *Orchestrator) work(ctx context.Context, variant adapter.Adapter, abort context.CancelFunc) {
	for {
		task, ok := o.next()
		if !ok {
			return
		}
		o.process(ctx, variant, task, abort)

		o.mu.Lock()
		o.outstanding--
		o.mu.Unlock()
		o.cond.Broadcast()
	}
}

// next blocks until a task is available, the queue drains, or the run
// is cancelled.
func (o *Orchestrator) next() (archive.FetchTask, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for {
		if o.state == StateDrainingWithCancellation || o.fatal != nil {
			return archive.FetchTask{}, false
		}
		if len(o.queue) > 0 {
			task := o.queue[0]
			o.queue = o.queue[1:]
			return task, true
		}
		if o.outstanding == 0 {
			return archive.FetchTask{}, false
		}
		o.cond.Wait()
	}
}

// enqueue adds follow-up tasks unless the run is winding down. Page
// tasks dedup on their canonical URL so listing cycles terminate.
func (o *Orchestrator) enqueue(tasks []archive.FetchTask) {
	if len(tasks) == 0 {
		return
	}
	o.mu.Lock()
	if o.state == StateDraining && o.fatal == nil {
		for _, task := range tasks {
			if task.Kind == archive.TaskPage {
				canonical := urlutil.Canonicalize(task.URL)
				key := canonical.String()
				if o.visited[key] {
					continue
				}
				o.visited[key] = true
			}
			o.queue = append(o.queue, task)
			o.outstanding++
		}
	}
	o.mu.Unlock()
	o.cond.Broadcast()
}

func (o *Orchestrator) process(ctx context.Context, variant adapter.Adapter, task archive.FetchTask, abort context.CancelFunc) {
	var result fetcher.FetchResult

	switch task.Kind {
	case archive.TaskLocal:
		body, err := os.ReadFile(task.Path)
		if err != nil {
			o.noteFailure(failure.KindPermanentDenied)
			o.recordError("Orchestrator.process", &RunError{
				Message: err.Error(),
				Cause:   ErrCauseLocalSeedUnreadable,
			}, nil)
			return
		}
		result = fetcher.NewLocalResult(body)
	default:
		if !o.hostAllowed(ctx, task.URL) {
			o.noteFailure(failure.KindPermanentDenied)
			o.recordError("Orchestrator.process", &RunError{
				Message: "disallowed by robots policy: " + task.URL.String(),
				Cause:   ErrCauseRobotsDisallowed,
			}, []metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, task.URL.String()),
			})
			return
		}
		out := o.sched.Do(ctx, task)
		if !out.Succeeded() {
			if ctx.Err() == nil {
				o.noteAttempts(out.Task.AttemptCount)
				o.noteFailure(out.Kind)
				o.recordError("Orchestrator.process", out.Err, []metadata.Attribute{
					metadata.NewAttr(metadata.AttrURL, task.URL.String()),
				})
			}
			return
		}
		o.noteAttempts(out.Task.AttemptCount)
		result = out.Result
	}

	pctx := adapter.ParseContext{
		BaseURL:   result.URL(),
		Stage:     task.Stage,
		FetchedAt: o.clk.Now(),
	}
	if task.Kind == archive.TaskLocal {
		pctx.BaseURL = url.URL{}
	}

	output, perr := variant.Parse(result, pctx)
	if perr != nil {
		o.noteFailure(failure.KindParseMismatch)
		o.recordError("Orchestrator.process", perr, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, pctx.BaseURL.String()),
			metadata.NewAttr(metadata.AttrArchive, variant.Name()),
		})
		return
	}

	o.enqueue(output.Follow)

	for _, rec := range output.Records {
		if ctx.Err() != nil {
			return
		}
		o.persistRecord(ctx, rec, abort)
	}
}

// persistRecord normalizes, resolves and downloads images, writes the
// record and marks it complete in the resume index.
func (o *Orchestrator) persistRecord(ctx context.Context, rec archive.Record, abort context.CancelFunc) {
	rec, nerr := o.constraint.Normalize(rec)
	if nerr != nil {
		o.noteFailure(failure.KindParseMismatch)
		return
	}

	if o.cfg.Resume() && o.index != nil {
		done, qerr := o.index.Completed(rec.Archive, rec.SourceID)
		if qerr != nil {
			o.fail(qerr, abort)
			return
		}
		if done {
			o.mu.Lock()
			o.summary.RecordsSkipped++
			o.mu.Unlock()
			return
		}
	}

	for i := range rec.ImageRefs {
		if ctx.Err() != nil {
			break
		}
		rec.ImageRefs[i] = o.resolver.Resolve(ctx, rec.ImageRefs[i], rec.Archive)
		if rec.ImageRefs[i].Status != archive.ImageResolved {
			continue
		}
		o.downloadImage(ctx, &rec.ImageRefs[i], abort)
	}

	rec.ImagePaths = rec.ImagePaths[:0]
	for _, ref := range rec.ImageRefs {
		if ref.Status == archive.ImageDownloaded {
			rec.ImagePaths = append(rec.ImagePaths, ref.LocalPath)
		}
		if ref.Degraded {
			o.mu.Lock()
			o.summary.ImagesDegraded++
			o.mu.Unlock()
		}
	}

	if _, werr := o.writer.Write(rec); werr != nil {
		o.fail(werr, abort)
		return
	}
	o.mu.Lock()
	o.summary.RecordsWritten++
	o.mu.Unlock()

	if o.index != nil {
		if ierr := o.index.MarkCompleted(rec, o.summary.RunID); ierr != nil {
			o.fail(ierr, abort)
		}
	}
}

// downloadImage fetches the ref's resolved URL and admits the bytes to
// the content-addressed store.
func (o *Orchestrator) downloadImage(ctx context.Context, ref *archive.ImageRef, abort context.CancelFunc) {
	o.urlMu.Lock()
	if cached, hit := o.byURL[ref.ResolvedURL]; hit {
		o.urlMu.Unlock()
		ref.ContentHash = cached.hash
		ref.LocalPath = cached.path
		ref.Advance(archive.ImageDownloaded)
		o.mu.Lock()
		o.summary.ImagesDeduplicated++
		o.mu.Unlock()
		return
	}
	failed := o.dlError[ref.ResolvedURL]
	o.urlMu.Unlock()
	if failed {
		ref.Advance(archive.ImageFailed)
		return
	}

	imgURL, err := url.Parse(ref.ResolvedURL)
	if err != nil {
		ref.Advance(archive.ImageFailed)
		return
	}
	out := o.sched.Do(ctx, archive.FetchTask{
		URL:  *imgURL,
		Kind: archive.TaskImage,
	})
	if !out.Succeeded() {
		if ctx.Err() == nil {
			o.noteAttempts(out.Task.AttemptCount)
			o.noteFailure(out.Kind)
			o.recordError("Orchestrator.downloadImage", out.Err, []metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, ref.ResolvedURL),
			})
			o.urlMu.Lock()
			o.dlError[ref.ResolvedURL] = true
			o.urlMu.Unlock()
		}
		ref.Advance(archive.ImageFailed)
		return
	}
	o.noteAttempts(out.Task.AttemptCount)

	status, hash, relPath, serr := o.images.Store(out.Result.Body())
	if serr != nil {
		if failure.IsFatal(serr) {
			o.fail(serr, abort)
		} else {
			// Payload failed the image signature check.
			o.noteFailure(failure.KindPersistenceIO)
			o.recordError("Orchestrator.downloadImage", serr, []metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, ref.ResolvedURL),
			})
		}
		ref.Advance(archive.ImageFailed)
		return
	}

	ref.ContentHash = hash
	ref.LocalPath = relPath
	ref.Advance(archive.ImageDownloaded)

	o.urlMu.Lock()
	o.byURL[ref.ResolvedURL] = storedImage{hash: hash, path: relPath}
	o.urlMu.Unlock()

	o.mu.Lock()
	if status == dataset.StoreDeduplicated {
		o.summary.ImagesDeduplicated++
	} else {
		o.summary.ImagesStored++
	}
	o.mu.Unlock()
}

// hostAllowed consults the host's robots policy, fetching and caching
// robots.txt on first contact and applying its crawl-delay to the
// scheduler lane.
func (o *Orchestrator) hostAllowed(ctx context.Context, pageURL url.URL) bool {
	if !o.cfg.RespectRobots() {
		return true
	}

	o.robotsMu.Lock()
	cached, hit := o.rules[pageURL.Host]
	o.robotsMu.Unlock()
	if hit {
		return cached.Allowed(pageURL.Path)
	}

	robotsURL := url.URL{Scheme: pageURL.Scheme, Host: pageURL.Host, Path: "/robots.txt"}
	out := o.sched.Do(ctx, archive.FetchTask{
		URL:  robotsURL,
		Kind: archive.TaskPage,
	})
	if ctx.Err() == nil {
		o.noteAttempts(out.Task.AttemptCount)
	}

	parsed := robots.EmptyRules()
	if out.Succeeded() {
		parsed = robots.Parse(out.Result.Body(), o.cfg.UserAgent())
	}
	if delay := parsed.CrawlDelay(); delay > 0 {
		o.sched.SetHostInterval(pageURL.Host, delay)
	}

	o.robotsMu.Lock()
	o.rules[pageURL.Host] = parsed
	o.robotsMu.Unlock()

	return parsed.Allowed(pageURL.Path)
}

// fail records a fatal error once and aborts the run.
func (o *Orchestrator) fail(err failure.ClassifiedError, abort context.CancelFunc) {
	o.mu.Lock()
	first := o.fatal == nil
	if first {
		o.fatal = err
	}
	o.mu.Unlock()
	if first {
		o.recordError("Orchestrator.fail", err, nil)
		abort()
		o.cond.Broadcast()
	}
}

// noteAttempts buckets a finalized task by the retries it consumed.
func (o *Orchestrator) noteAttempts(attemptCount int) {
	o.mu.Lock()
	o.summary.AttemptsByCount[attemptCount]++
	o.mu.Unlock()
}

func (o *Orchestrator) noteFailure(kind failure.Kind) {
	if kind == "" {
		kind = failure.KindUnknown
	}
	o.mu.Lock()
	o.summary.TasksFailed++
	o.summary.FailuresByKind[kind]++
	o.mu.Unlock()
}

func (o *Orchestrator) recordError(action string, err failure.ClassifiedError, attrs []metadata.Attribute) {
	kind := failure.KindUnknown
	type kinded interface {
		Kind() failure.Kind
	}
	if k, ok := err.(kinded); ok {
		kind = k.Kind()
	}
	o.metadataSink.RecordError(time.Now(), "pipeline", action, kind, err.Error(), attrs)
}
