package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"puzzlepals/internal/models"
	"puzzlepals/internal/remote"
	"puzzlepals/internal/repository"
)

var (
	// ErrOffline is returned by direct remote operations when sync is
	// disabled or the startup probe failed
	ErrOffline = errors.New("remote store offline")

	// ErrDefaultIdentity is returned when asked to sync the default identity
	ErrDefaultIdentity = errors.New("default identity is never synced")
)

// Config bounds the orchestrator's remote work
type Config struct {
	ProbeTimeout   time.Duration
	RestoreTimeout time.Duration
	PushTimeout    time.Duration
	QueueSize      int
	Workers        int
}

// DefaultConfig returns the default orchestrator settings
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:   3 * time.Second,
		RestoreTimeout: 5 * time.Second,
		PushTimeout:    10 * time.Second,
		QueueSize:      64,
		Workers:        2,
	}
}

type jobKind int

const (
	jobPush jobKind = iota
	jobRestore
)

// identityState orders remote work for one identity. Pushes that arrive
// while a restore is pending are held back and replayed once it finishes,
// so a push of fresh local defaults never lands before the restore reads
// the remote snapshot.
type identityState struct {
	mu              sync.Mutex // held for the whole of a push or restore
	pendingRestores int
	pushDeferred    bool
}

type job struct {
	kind     jobKind
	identity models.IdentityID
	reason   string
}

// Orchestrator mirrors local changes to the remote store on background
// workers. The local store stays authoritative; failed jobs are logged and
// picked up again by the next change to the same identity.
type Orchestrator struct {
	store   *repository.Store
	client  *remote.Client
	config  Config
	logger  *slog.Logger
	metrics *Metrics

	online atomic.Bool

	mu      sync.RWMutex
	queue   chan job

	stateMu    sync.Mutex
	identities map[models.IdentityID]*identityState
	started bool
	stopped bool
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// New creates an orchestrator. A nil client disables remote sync.
func New(store *repository.Store, client *remote.Client, config Config, logger *slog.Logger, reg prometheus.Registerer) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Orchestrator{
		store:   store,
		client:  client,
		config:  config,
		logger:  logger,
		metrics: NewMetrics(reg),
		queue:   make(chan job, config.QueueSize),

		identities: make(map[models.IdentityID]*identityState),
	}
}

// Metrics returns the orchestrator's counters
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// Start probes the remote store once and, if it answered within the probe
// timeout, starts the workers. The probe result holds for the process lifetime.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started || o.stopped {
		return
	}

	if o.client == nil {
		o.logger.Info("remote sync disabled")
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, o.config.ProbeTimeout)
	err := o.client.Ping(probeCtx)
	cancel()
	if err != nil {
		o.logger.Warn("remote store unreachable, sync disabled", slog.String("error", err.Error()))
		return
	}
	o.online.Store(true)

	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	o.cancel = cancelWork
	o.group, workCtx = errgroup.WithContext(workCtx)
	for i := 0; i < o.config.Workers; i++ {
		o.group.Go(func() error {
			for j := range o.queue {
				o.run(workCtx, j)
			}
			return nil
		})
	}
	o.started = true
	o.logger.Info("remote sync started", slog.Int("workers", o.config.Workers))
}

// Online reports whether the startup probe succeeded
func (o *Orchestrator) Online() bool {
	return o.online.Load()
}

// Stop lets the workers drain the queue and waits for them. Hooks called
// after Stop are ignored.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	started := o.started
	if started {
		close(o.queue)
	}
	o.mu.Unlock()

	if started {
		_ = o.group.Wait()
		o.cancel()
	}
	o.online.Store(false)
}

// OnConfigurationChanged schedules a push of the subject's identity
func (o *Orchestrator) OnConfigurationChanged(subject models.Subject) {
	o.enqueue(job{kind: jobPush, identity: subject.IdentityID, reason: "configuration"})
}

// OnParentalControlChanged schedules a push of the subject's identity
func (o *Orchestrator) OnParentalControlChanged(subject models.Subject) {
	o.enqueue(job{kind: jobPush, identity: subject.IdentityID, reason: "parental_control"})
}

// OnLevelCompleted schedules a push of the subject's identity
func (o *Orchestrator) OnLevelCompleted(subject models.Subject, level int) {
	o.enqueue(job{kind: jobPush, identity: subject.IdentityID, reason: fmt.Sprintf("level %d", level)})
}

// ScheduleRestore schedules RestoreFromRemote for id
func (o *Orchestrator) ScheduleRestore(id models.IdentityID) {
	o.enqueue(job{kind: jobRestore, identity: id, reason: "login"})
}

func (o *Orchestrator) enqueue(j job) {
	if !o.Online() || models.IsDefaultIdentity(j.identity) {
		return
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped || !o.started {
		return
	}

	if j.kind == jobRestore {
		o.stateMu.Lock()
		o.state(j.identity).pendingRestores++
		o.stateMu.Unlock()
	}

	select {
	case o.queue <- j:
	default:
		if j.kind == jobRestore && o.finishRestore(j.identity) {
			// Replay the push the dropped restore was holding back
			select {
			case o.queue <- job{kind: jobPush, identity: j.identity, reason: "held during restore"}:
			default:
			}
		}
		o.metrics.Dropped.Inc()
		o.logger.Warn("sync queue full, dropping job",
			slog.String("identity", string(j.identity)),
			slog.String("reason", j.reason))
	}
}

func (o *Orchestrator) run(ctx context.Context, j job) {
	switch j.kind {
	case jobPush:
		st := o.lockedState(j.identity)
		defer st.mu.Unlock()
		if o.holdPush(j.identity) {
			o.logger.Debug("push held until restore completes",
				slog.String("identity", string(j.identity)),
				slog.String("reason", j.reason))
			return
		}
		o.push(ctx, j.identity, j.reason)
	case jobRestore:
		st := o.lockedState(j.identity)
		defer st.mu.Unlock()

		if _, err := o.RestoreFromRemote(ctx, j.identity); err != nil {
			o.logger.Error("failed to restore from remote",
				slog.String("identity", string(j.identity)),
				slog.String("error", err.Error()))
		}
		if o.finishRestore(j.identity) {
			o.push(ctx, j.identity, "held during restore")
		}
	}
}

func (o *Orchestrator) push(ctx context.Context, id models.IdentityID, reason string) {
	if _, err := o.PushIdentity(ctx, id); err != nil {
		o.logger.Error("failed to push snapshot",
			slog.String("identity", string(id)),
			slog.String("reason", reason),
			slog.String("error", err.Error()))
	}
}

// state returns the bookkeeping for id. Callers hold stateMu.
func (o *Orchestrator) state(id models.IdentityID) *identityState {
	st, ok := o.identities[id]
	if !ok {
		st = &identityState{}
		o.identities[id] = st
	}
	return st
}

func (o *Orchestrator) lockedState(id models.IdentityID) *identityState {
	o.stateMu.Lock()
	st := o.state(id)
	o.stateMu.Unlock()
	st.mu.Lock()
	return st
}

// holdPush defers a push of id while a restore of id is pending
func (o *Orchestrator) holdPush(id models.IdentityID) bool {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	st := o.state(id)
	if st.pendingRestores == 0 {
		return false
	}
	st.pushDeferred = true
	return true
}

// finishRestore marks one restore of id as done and reports whether a push
// was held back and no other restore is still pending
func (o *Orchestrator) finishRestore(id models.IdentityID) bool {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	st := o.state(id)
	if st.pendingRestores > 0 {
		st.pendingRestores--
	}
	if st.pendingRestores > 0 || !st.pushDeferred {
		return false
	}
	st.pushDeferred = false
	return true
}

func (o *Orchestrator) check(id models.IdentityID) error {
	if o.client == nil || !o.Online() {
		return ErrOffline
	}
	if models.IsDefaultIdentity(id) {
		return ErrDefaultIdentity
	}
	return nil
}

// PushIdentity uploads the full current snapshot of identity id
func (o *Orchestrator) PushIdentity(ctx context.Context, id models.IdentityID) (*models.RemoteSnapshot, error) {
	if err := o.check(id); err != nil {
		return nil, err
	}

	snap, err := o.BuildSnapshot(id)
	if err != nil {
		o.metrics.Pushes.WithLabelValues(resultError).Inc()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.PushTimeout)
	defer cancel()

	pushed, err := o.client.PushSnapshot(ctx, *snap)
	if err != nil {
		o.metrics.Pushes.WithLabelValues(resultError).Inc()
		return nil, err
	}
	o.metrics.Pushes.WithLabelValues(resultSuccess).Inc()
	o.logger.Debug("snapshot pushed", slog.String("identity", string(id)))
	return pushed, nil
}

// BuildSnapshot assembles the snapshot of identity id from the local store
func (o *Orchestrator) BuildSnapshot(id models.IdentityID) (*models.RemoteSnapshot, error) {
	identity, err := o.store.Identities.Get(id)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fmt.Errorf("identity %s not found", id)
	}

	subject := identity.Subject()
	cfg, pc, stats, err := o.subjectData(subject)
	if err != nil {
		return nil, err
	}
	snap := &models.RemoteSnapshot{
		IdentityID:      id,
		Email:           identity.Email,
		Configuration:   models.SnapshotConfiguration(*cfg),
		ParentalControl: models.SnapshotParental(*pc),
		Statistics:      stats,
	}

	profiles, err := o.store.Profiles.ListByOwner(id)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		cfg, pc, stats, err := o.subjectData(p.Subject())
		if err != nil {
			return nil, err
		}
		snap.Profiles = append(snap.Profiles, models.ProfileSnapshot{
			Name:            p.Name,
			Gender:          p.Gender,
			Configuration:   models.SnapshotConfiguration(*cfg),
			ParentalControl: models.SnapshotParental(*pc),
			Statistics:      stats,
		})
	}
	return snap, nil
}

func (o *Orchestrator) subjectData(subject models.Subject) (*models.Configuration, *models.ParentalControl, []models.LevelStats, error) {
	cfg, err := o.store.Configurations.GetOrCreate(subject)
	if err != nil {
		return nil, nil, nil, err
	}
	pc, err := o.store.ParentalControls.GetOrCreate(subject)
	if err != nil {
		return nil, nil, nil, err
	}
	stats, err := o.store.Statistics.List(subject)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pc, stats, nil
}

// RestoreFromRemote copies the remote snapshot of id into the local store,
// leaving rows a user already edited on this device untouched. When no
// snapshot exists the local defaults are pushed instead. It reports whether a
// snapshot was applied.
func (o *Orchestrator) RestoreFromRemote(ctx context.Context, id models.IdentityID) (bool, error) {
	if err := o.check(id); err != nil {
		return false, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.config.RestoreTimeout)
	snap, err := o.client.FetchSnapshot(fetchCtx, id)
	cancel()
	if errors.Is(err, remote.ErrNotFound) {
		if _, err := o.PushIdentity(ctx, id); err != nil {
			o.metrics.Restores.WithLabelValues(resultError).Inc()
			return false, fmt.Errorf("failed to bootstrap remote snapshot: %w", err)
		}
		o.metrics.Restores.WithLabelValues(resultBootstrap).Inc()
		o.logger.Info("no remote snapshot, pushed local defaults", slog.String("identity", string(id)))
		return false, nil
	}
	if err != nil {
		o.metrics.Restores.WithLabelValues(resultError).Inc()
		return false, err
	}

	if err := o.applySnapshot(id, snap); err != nil {
		o.metrics.Restores.WithLabelValues(resultError).Inc()
		return false, err
	}
	o.metrics.Restores.WithLabelValues(resultRestored).Inc()
	o.logger.Info("restored from remote snapshot",
		slog.String("identity", string(id)),
		slog.Int("profiles", len(snap.Profiles)))
	return true, nil
}

func (o *Orchestrator) applySnapshot(id models.IdentityID, snap *models.RemoteSnapshot) error {
	subject := models.Subject{IdentityID: id}
	if err := o.restoreSubject(subject, snap.Configuration, snap.ParentalControl, snap.Statistics); err != nil {
		return err
	}

	local, err := o.store.Profiles.ListByOwner(id)
	if err != nil {
		return err
	}
	byName := make(map[string]models.Profile, len(local))
	for _, p := range local {
		if _, ok := byName[p.Name]; !ok {
			byName[p.Name] = p
		}
	}

	for _, ps := range snap.Profiles {
		profile, ok := byName[ps.Name]
		if !ok {
			created, err := o.store.Profiles.Create(id, ps.Name, ps.Gender)
			if err != nil {
				return err
			}
			profile = *created
			byName[ps.Name] = profile
		}
		if err := o.restoreSubject(profile.Subject(), ps.Configuration, ps.ParentalControl, ps.Statistics); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) restoreSubject(subject models.Subject, cfg models.ConfigurationSnapshot, pc models.ParentalSnapshot, stats []models.LevelStats) error {
	applied, err := o.store.Configurations.Restore(subject, cfg.Configuration())
	if err != nil {
		return err
	}
	if !applied {
		o.logger.Info("kept locally modified configuration", slog.String("subject", subject.String()))
	}

	applied, err = o.store.ParentalControls.Restore(subject, pc.ParentalControl())
	if err != nil {
		return err
	}
	if !applied {
		o.logger.Info("kept locally modified parental control", slog.String("subject", subject.String()))
	}

	for _, s := range stats {
		if _, err := o.store.Statistics.Restore(subject, s); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRemote removes the remote snapshot of id
func (o *Orchestrator) DeleteRemote(ctx context.Context, id models.IdentityID) error {
	if err := o.check(id); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, o.config.PushTimeout)
	defer cancel()
	return o.client.DeleteSnapshot(ctx, id)
}
