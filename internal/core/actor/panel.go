package actor

import (
	"context"
	"time"

	"github.com/berfenger/receiptpanel/internal/config"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/port"
	"github.com/berfenger/receiptpanel/internal/core/service"
	. "github.com/berfenger/receiptpanel/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

type PanelDeps struct {
	Host        port.HostClient
	History     port.HistoryRecorder
	EventStream *eventstream.EventStream
	Clock       func() time.Time
}

type PanelActor struct {
	ActorWithStates
	config      *config.Config
	host        port.HostClient
	history     port.HistoryRecorder
	eventStream *eventstream.EventStream
	clock       func() time.Time
	timeout     time.Duration

	vocabulary   domain.Vocabulary
	aggregator   *service.Aggregator
	state        *service.PanelState
	snapshot     domain.Snapshot
	stash        *Stash
	listings     *Stash
	listed       bool
	scheduler    *scheduler.TimerScheduler
	subscription *eventstream.Subscription
	rerun        bool
	historyQueue chan func(context.Context) error

	logger *zap.Logger
}

// background results

type aggregationResult struct {
	snapshot domain.Snapshot
	registry *domain.Registry
	err      error
}

type listingResult struct {
	files   []string
	err     error
	replyTo *actor.PID
}

type dispatchResult struct {
	request domain.GenerationRequest
	err     error
}

type deleteResult struct {
	filename string
	err      error
	replyTo  *actor.PID
}

type statsResult struct {
	baseName string
	snapshot domain.Snapshot
	err      error
	replyTo  *actor.PID
}

type historyResult struct {
	entries []domain.HistoryEntry
	err     error
	replyTo *actor.PID
}

type refreshListingTick struct {
}

func NewPanelActor(cfg *config.Config, deps PanelDeps, logger *zap.Logger) (*PanelActor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	actorLogger := ActorLogger(domain.ACTOR_ID_PANEL, logger)
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	act := &PanelActor{
		config:      cfg,
		host:        deps.Host,
		history:     deps.History,
		eventStream: deps.EventStream,
		clock:       clock,
		timeout:     cfg.HomeAssistantTimeout(),
		vocabulary:  cfg.Vocabulary(),
		aggregator:  NewConfiguredAggregator(cfg, actorLogger),
		state:       service.NewPanelState(loc, cfg.Generation.FilenamePrefix),
		stash:       &Stash{},
		listings:    &Stash{},
		logger:      actorLogger,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(PanelUninitializedState{
		actor: act,
	})
	return act, nil
}

// NewConfiguredAggregator builds the aggregator with the configured domains, suffixes and allow-list.
func NewConfiguredAggregator(cfg *config.Config, logger *zap.Logger) *service.Aggregator {
	classifier := service.NewEntityClassifier(cfg.Vocabulary())
	classifier.SensorDomain = cfg.Aggregation.SensorDomain
	classifier.ControlDomain = cfg.Aggregation.ControlDomain
	classifier.ControlSuffix = cfg.Aggregation.ControlSuffix
	return service.NewAggregator(classifier, cfg.Aggregation.AllowedDevices, logger)
}

func (state *PanelActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *PanelActor) lifecycle() domain.Lifecycle {
	return domain.Lifecycle(state.StateName())
}

// Uninitialized state

type PanelUninitializedState struct {
	ActorState
	actor *PanelActor
}

func (state PanelUninitializedState) Name() string {
	return string(domain.LIFECYCLE_UNINITIALIZED)
}

func (state PanelUninitializedState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("panel@uninitialized started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
	case domain.InitializeRequest, domain.HostConnectedEvent, domain.ReloadRequest:
		state.actor.logger.Debug("panel@uninitialized init", MessageType(msg))
		state.actor.Become(PanelInitializingState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.respondLifecycle(ctx)
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx)
	case *actor.Stopping:
		state.actor.stop()
	case *actor.Restarting:
		state.actor.restart(ctx)
	case domain.PanelRequest:
		state.actor.logger.Debug("panel@uninitialized stash", MessageType(msg))
		state.actor.stash.Stash(ctx, msg)
	default:
		state.actor.logger.Debug("panel@uninitialized recv", MessageType(msg))
	}
}

// Initializing state

type PanelInitializingState struct {
	ActorState
	actor *PanelActor
}

func (state PanelInitializingState) Name() string {
	return string(domain.LIFECYCLE_INITIALIZING)
}

// OnEnter starts a full aggregation pass.
func (state PanelInitializingState) OnEnter(ctx actor.Context) PanelInitializingState {
	host := state.actor.host
	logger := state.actor.logger
	NewBackgroundTaskNoError(ctx, func(c context.Context) *aggregationResult {
		snapshot, err := host.GetSnapshot(c)
		if err != nil {
			return &aggregationResult{err: err}
		}
		registry, err := host.GetRegistry(c)
		if err != nil {
			// degraded mode: no locations, no device gate
			logger.Warn("panel@initializing registry unavailable", zap.Error(err))
			registry = nil
		}
		return &aggregationResult{snapshot: snapshot, registry: registry}
	}).WithTimeout(2 * state.actor.timeout).Recover(func(err error) aggregationResult {
		return aggregationResult{err: err}
	}).PipeTo(ctx.Self())
	return state
}

func (state PanelInitializingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case aggregationResult:
		if msg.err != nil {
			state.actor.logger.Error("panel@initializing snapshot error, keeping previous users", zap.Error(msg.err))
		} else {
			state.actor.snapshot = msg.snapshot
			state.actor.state.SetUsers(state.actor.aggregator.Aggregate(msg.snapshot, msg.registry))
			state.actor.logger.Info("panel@initializing users aggregated", zap.Int("users", len(state.actor.state.Users)))
		}
		if state.actor.rerun {
			state.actor.rerun = false
			state.OnEnter(ctx)
			return
		}
		state.actor.Become(PanelReadyState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.stash.UnstashAll(ctx)
	case domain.InitializeRequest:
		state.actor.respondLifecycle(ctx)
	case domain.HostConnectedEvent, domain.ReloadRequest:
		// aggregation already running, run once more when it ends
		state.actor.logger.Debug("panel@initializing rerun requested", MessageType(msg))
		state.actor.rerun = true
		state.actor.respondLifecycle(ctx)
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx)
	case *actor.Stopping:
		state.actor.stop()
	case *actor.Restarting:
		state.actor.restart(ctx)
	case domain.PanelRequest:
		state.actor.logger.Debug("panel@initializing stash", MessageType(msg))
		state.actor.stash.Stash(ctx, msg)
	default:
		if !state.actor.handleBackground(ctx, msg) {
			state.actor.logger.Debug("panel@initializing recv", MessageType(msg))
		}
	}
}

// Ready state

type PanelReadyState struct {
	ActorState
	actor *PanelActor
}

func (state PanelReadyState) Name() string {
	return string(domain.LIFECYCLE_READY)
}

func (state PanelReadyState) OnEnter(ctx actor.Context) PanelReadyState {
	state.actor.subscribeCompletion(ctx)
	state.actor.refreshListing(ctx, nil)
	state.actor.publishStatus()
	return state
}

func (state PanelReadyState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		a.respondHealth(ctx)
	case domain.InitializeRequest:
		a.logger.Debug("panel@ready InitializeRequest ignored")
		a.respondLifecycle(ctx)
	case domain.HostConnectedEvent, domain.ReloadRequest:
		a.logger.Debug("panel@ready re-aggregate", MessageType(msg))
		a.Become(PanelInitializingState{
			actor: a,
		}.OnEnter(ctx))
		a.respondLifecycle(ctx)
	case domain.GetPanelStateRequest:
		a.respondView(ctx)
	case domain.SearchRequest:
		a.state.Filter = service.UserFilter{Query: msg.Query, Building: msg.Building, Street: msg.Street}
		a.respondView(ctx)
	case domain.ToggleSelectionRequest:
		a.state.Selection.Toggle(msg.BaseName)
		a.respondView(ctx)
	case domain.SelectAllRequest:
		a.state.SelectAllFiltered()
		a.respondView(ctx)
	case domain.ClearSelectionRequest:
		a.state.Selection.Clear()
		a.respondView(ctx)
	case domain.SetDateRangeRequest:
		if _, err := a.state.DateRange.SetExplicit(msg.Start, msg.End); err != nil {
			ctx.Respond(domain.PanelStateResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}})
			return
		}
		a.respondView(ctx)
	case domain.SetDatePresetRequest:
		if _, err := a.state.DateRange.SetPreset(msg.Preset, a.clock()); err != nil {
			ctx.Respond(domain.PanelStateResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}})
			return
		}
		a.respondView(ctx)
	case domain.GetUsersRequest:
		ctx.Respond(domain.GetUsersResponse{Users: a.state.Users})
	case domain.GetUserStatsRequest:
		a.userStats(ctx, msg)
	case domain.GenerateRequest:
		a.generate(ctx, msg)
	case domain.GetStatusRequest:
		ctx.Respond(domain.GetStatusResponse{Status: a.state.Status})
	case domain.ListReportsRequest:
		if !a.listed {
			a.listings.Stash(ctx, msg)
			return
		}
		ctx.Respond(domain.ListReportsResponse{Files: a.state.Reports})
	case domain.RefreshReportsRequest:
		a.refreshListing(ctx, ForRequest(msg).ReplyTo(ctx))
	case domain.DeleteReportRequest:
		if !a.listed {
			a.listings.Stash(ctx, msg)
			return
		}
		a.deleteReport(ctx, msg)
	case domain.GetHistoryRequest:
		a.getHistory(ctx, msg)
	case *actor.Stopping:
		a.stop()
	case *actor.Restarting:
		a.restart(ctx)
	default:
		if !a.handleBackground(ctx, msg) {
			a.logger.Debug("panel@ready recv", MessageType(msg))
		}
	}
}

// handleBackground applies results and events that are valid in any state after the first aggregation.
func (a *PanelActor) handleBackground(ctx actor.Context, msg any) bool {
	switch msg := msg.(type) {
	case domain.CompletionEvent:
		a.logger.Info("panel@"+a.StateName()+" completion event", zap.Bool("success", msg.Success), zap.String("filename", msg.Filename), zap.String("error", msg.Error))
		a.state.ApplyCompletion(msg)
		a.publishStatus()
		a.recordCompletion(msg)
		a.scheduler.SendOnce(a.config.ListingRefreshDelay(), ctx.Self(), refreshListingTick{})
	case refreshListingTick:
		a.refreshListing(ctx, nil)
	case listingResult:
		if msg.err != nil {
			a.logger.Error("panel@"+a.StateName()+" listing error", zap.Error(msg.err))
			a.state.SetReports(nil)
		} else {
			a.state.SetReports(msg.files)
		}
		if !a.listed {
			// first listing done, release the requests that waited for it
			a.listed = true
			a.logger.Debug("panel@"+a.StateName()+" first listing", zap.Int("waiting", a.listings.Len()))
			a.listings.UnstashAll(ctx)
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, domain.ListReportsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: msg.err},
				Files:              a.state.Reports,
			})
		}
	case dispatchResult:
		if msg.err != nil {
			a.logger.Error("panel@"+a.StateName()+" dispatch error", zap.String("request_id", msg.request.Id), zap.Error(msg.err))
			a.state.MarkDispatchFailed(msg.err)
			a.publishStatus()
			a.recordFailure(msg.request.Id, msg.err)
		} else {
			a.logger.Debug("panel@"+a.StateName()+" dispatch acknowledged", zap.String("request_id", msg.request.Id))
		}
	case deleteResult:
		if msg.err == nil {
			a.state.RemoveReport(msg.filename)
		} else {
			a.logger.Error("panel@"+a.StateName()+" delete error", zap.String("filename", msg.filename), zap.Error(msg.err))
		}
		ctx.Send(msg.replyTo, domain.DeleteReportResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: msg.err},
			Files:              a.state.Reports,
		})
	case statsResult:
		snapshot := msg.snapshot
		if msg.err != nil {
			a.logger.Warn("panel@"+a.StateName()+" snapshot error, using last snapshot", zap.Error(msg.err))
			snapshot = a.snapshot
		} else {
			a.snapshot = snapshot
		}
		stats, err := a.state.UserStats(msg.baseName, snapshot, a.vocabulary)
		ctx.Send(msg.replyTo, domain.GetUserStatsResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Stats:              stats,
		})
	case historyResult:
		ctx.Send(msg.replyTo, domain.GetHistoryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: msg.err},
			Entries:            msg.entries,
		})
	default:
		return false
	}
	return true
}

func (a *PanelActor) respondHealth(ctx actor.Context) {
	a.logger.Debug("panel@" + a.StateName() + " ActorHealthRequest")
	ctx.Respond(domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_PANEL,
		Healthy: true,
		State:   a.StateName(),
	})
}

func (a *PanelActor) respondLifecycle(ctx actor.Context) {
	if ctx.Sender() != nil {
		ctx.Respond(domain.LifecycleResponse{Lifecycle: a.lifecycle()})
	}
}

func (a *PanelActor) respondView(ctx actor.Context) {
	ctx.Respond(domain.PanelStateResponse{View: a.state.View(a.lifecycle(), a.clock())})
}

// subscribeCompletion registers the completion listener once per actor lifetime.
func (a *PanelActor) subscribeCompletion(ctx actor.Context) {
	if a.subscription != nil || a.eventStream == nil {
		return
	}
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	a.subscription = a.eventStream.SubscribeWithPredicate(func(evt any) {
		root.Send(self, evt)
	}, func(evt any) bool {
		_, ok := evt.(domain.CompletionEvent)
		return ok
	})
	a.logger.Debug("panel@ready completion listener subscribed")
}

func (a *PanelActor) refreshListing(ctx actor.Context, replyTo *actor.PID) {
	host := a.host
	NewBackgroundTask(ctx, func(c context.Context) (*listingResult, error) {
		files, err := host.ListReports(c)
		return &listingResult{files: files, err: err, replyTo: replyTo}, nil
	}).WithTimeout(a.timeout).Recover(func(err error) listingResult {
		return listingResult{err: err, replyTo: replyTo}
	}).PipeTo(ctx.Self())
}

func (a *PanelActor) generate(ctx actor.Context, msg domain.GenerateRequest) {
	req, err := a.state.BuildRequest(a.clock(), service.GenerateOptions{
		Filename:       msg.Filename,
		FilenamePrefix: msg.FilenamePrefix,
	})
	if err != nil {
		a.logger.Debug("panel@ready generate rejected", zap.Error(err))
		ctx.Respond(domain.GenerateResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}})
		return
	}
	a.logger.Info("panel@ready generate", zap.String("request_id", req.Id), zap.Strings("entity_ids", req.EntityIds),
		zap.String("start_date", req.StartDate), zap.String("end_date", req.EndDate))
	a.state.MarkDispatched()
	a.publishStatus()
	ctx.Respond(domain.GenerateResponse{Request: &req})

	a.recordDispatch(req)
	host := a.host
	NewBackgroundTask(ctx, func(c context.Context) (*dispatchResult, error) {
		return &dispatchResult{request: req, err: host.Generate(c, req)}, nil
	}).WithTimeout(a.timeout).Recover(func(err error) dispatchResult {
		return dispatchResult{request: req, err: err}
	}).PipeTo(ctx.Self())
}

func (a *PanelActor) deleteReport(ctx actor.Context, msg domain.DeleteReportRequest) {
	replyTo := ForRequest(msg).ReplyTo(ctx)
	host := a.host
	filename := msg.Filename
	NewBackgroundTask(ctx, func(c context.Context) (*deleteResult, error) {
		return &deleteResult{filename: filename, err: host.DeleteReport(c, filename), replyTo: replyTo}, nil
	}).WithTimeout(a.timeout).Recover(func(err error) deleteResult {
		return deleteResult{filename: filename, err: err, replyTo: replyTo}
	}).PipeTo(ctx.Self())
}

func (a *PanelActor) userStats(ctx actor.Context, msg domain.GetUserStatsRequest) {
	if _, ok := a.state.User(msg.BaseName); !ok {
		_, err := a.state.UserStats(msg.BaseName, nil, a.vocabulary)
		ctx.Respond(domain.GetUserStatsResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}})
		return
	}
	replyTo := ForRequest(msg).ReplyTo(ctx)
	host := a.host
	baseName := msg.BaseName
	NewBackgroundTask(ctx, func(c context.Context) (*statsResult, error) {
		snapshot, err := host.GetSnapshot(c)
		return &statsResult{baseName: baseName, snapshot: snapshot, err: err, replyTo: replyTo}, nil
	}).WithTimeout(a.timeout).Recover(func(err error) statsResult {
		return statsResult{baseName: baseName, err: err, replyTo: replyTo}
	}).PipeTo(ctx.Self())
}

func (a *PanelActor) getHistory(ctx actor.Context, msg domain.GetHistoryRequest) {
	if a.history == nil {
		ctx.Respond(domain.GetHistoryResponse{Entries: []domain.HistoryEntry{}})
		return
	}
	replyTo := ForRequest(msg).ReplyTo(ctx)
	history := a.history
	limit := msg.Limit
	NewBackgroundTask(ctx, func(c context.Context) (*historyResult, error) {
		entries, err := history.List(c, limit)
		return &historyResult{entries: entries, err: err, replyTo: replyTo}, nil
	}).WithTimeout(a.timeout).Recover(func(err error) historyResult {
		return historyResult{err: err, replyTo: replyTo}
	}).PipeTo(ctx.Self())
}

func (a *PanelActor) recordDispatch(req domain.GenerationRequest) {
	a.record(func(c context.Context, h port.HistoryRecorder) error { return h.RecordDispatch(c, req) })
}

func (a *PanelActor) recordCompletion(ev domain.CompletionEvent) {
	a.record(func(c context.Context, h port.HistoryRecorder) error { return h.RecordCompletion(c, ev) })
}

func (a *PanelActor) recordFailure(requestId string, cause error) {
	a.record(func(c context.Context, h port.HistoryRecorder) error { return h.RecordFailure(c, requestId, cause) })
}

// record queues a history write. Writes run in order on one goroutine, off the actor loop.
func (a *PanelActor) record(fn func(context.Context, port.HistoryRecorder) error) {
	if a.history == nil {
		return
	}
	if a.historyQueue == nil {
		a.historyQueue = make(chan func(context.Context) error, 64)
		go runHistoryWriter(a.historyQueue, a.timeout, a.logger)
	}
	history := a.history
	write := func(c context.Context) error { return fn(c, history) }
	select {
	case a.historyQueue <- write:
	default:
		a.logger.Warn("panel: history queue full, write dropped")
	}
}

func runHistoryWriter(queue <-chan func(context.Context) error, timeout time.Duration, logger *zap.Logger) {
	for write := range queue {
		c, cancel := context.WithTimeout(context.Background(), timeout)
		if err := write(c); err != nil {
			logger.Error("panel: history write failed", zap.Error(err))
		}
		cancel()
	}
}

func (a *PanelActor) publishStatus() {
	if a.eventStream == nil {
		return
	}
	a.eventStream.Publish(domain.StatusUpdateEvent{
		Status:     a.state.Status,
		LastReport: a.state.LastReport,
		Users:      len(a.state.Users),
	})
}

// restart hands the next incarnation an init request and every request still waiting here.
func (a *PanelActor) restart(ctx actor.Context) {
	a.logger.Warn("panel@"+a.StateName()+" restarting", zap.Int("stashed", a.stash.Len()+a.listings.Len()))
	a.stop()
	ctx.Send(ctx.Self(), domain.InitializeRequest{})
	a.stash.UnstashAll(ctx)
	a.listings.UnstashAll(ctx)
}

func (a *PanelActor) stop() {
	if a.subscription != nil && a.eventStream != nil {
		a.eventStream.Unsubscribe(a.subscription)
		a.subscription = nil
	}
	if a.historyQueue != nil {
		close(a.historyQueue)
		a.historyQueue = nil
	}
}
