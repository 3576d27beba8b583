// Package sessiongateway implements the per-hub-session actor (C5): it
// subscribes to the marketplace, polls for events on a fixed interval,
// dispatches events to task workers, aggregates statistics, and updates the
// hub session's status metadata. Grounded on original_source/src/gateway.rs,
// with its ctx.run_interval poll loop translated to a ticker goroutine in
// the style of teranos-QNTX/pulse/schedule/ticker.go.
package sessiongateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prekucki/gu-blender-mediator/internal/hubsdk"
	"github.com/prekucki/gu-blender-mediator/internal/marketplace"
	"github.com/prekucki/gu-blender-mediator/internal/taskworker"
	"github.com/prekucki/gu-blender-mediator/internal/workman"
)

const pollInterval = time.Second

// Stats mirrors original_source/src/gateway.rs's StatsData, camelCase on
// the wire to match the hub session metadata convention.
type Stats struct {
	Tasks        uint64 `json:"tasks"`
	Subtasks     uint64 `json:"subtasks"`
	SubtasksDone uint64 `json:"subtasksDone"`
	Fails        uint64 `json:"fails"`
}

func (s *Stats) add(o Stats) {
	s.Tasks += o.Tasks
	s.Subtasks += o.Subtasks
	s.SubtasksDone += o.SubtasksDone
	s.Fails += o.Fails
}

// Config carries the values needed to stand up one Gateway.
type Config struct {
	NodeID    string
	GwURL     string
	DavURL    string
	Docker    bool
	Name      string
	EthAddr   string
	SessionID string // empty means "create a fresh hub session"
}

// Gateway owns one hub session's subscription, event pump, and the task
// workers it has spawned.
type Gateway struct {
	cfg         Config
	marketplace *marketplace.Client
	hub         *hubsdk.Client
	workman     *workman.WorkMan
	log         *zap.SugaredLogger

	hubSession *hubsdk.Session

	mu          sync.Mutex
	lastEventID int64
	tasks       map[string]*taskworker.Worker
	stats       Stats

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup
}

// New constructs a Gateway. Call Start to begin its subscription and poll loop.
func New(cfg Config, mkt *marketplace.Client, hub *hubsdk.Client, wm *workman.WorkMan, log *zap.SugaredLogger) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:         cfg,
		marketplace: mkt,
		hub:         hub,
		workman:     wm,
		log:         log,
		lastEventID: -1,
		tasks:       make(map[string]*taskworker.Worker),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start creates or adopts the hub session, subscribes to the marketplace,
// and begins the 1 Hz poll loop. Subscription failure stops the gateway and
// writes an error status; success writes status "working".
func (g *Gateway) Start() error {
	if g.cfg.SessionID != "" {
		g.hubSession = g.hub.Session(g.cfg.SessionID)
	} else {
		session, err := g.hub.NewSession(g.ctx)
		if err != nil {
			return err
		}
		g.hubSession = session
	}

	sub := marketplace.NewBlenderSubscription(g.cfg.Name, g.cfg.EthAddr)
	if err := g.marketplace.Subscribe(g.ctx, g.cfg.NodeID, sub); err != nil {
		g.setStatus(fmt.Sprintf("error: %s", err))
		g.cancel()
		return err
	}
	g.setStatus("working")

	g.ticker = time.NewTicker(pollInterval)
	g.wg.Add(1)
	go g.pump()
	return nil
}

// Stop halts the poll loop and every task worker it owns.
func (g *Gateway) Stop() {
	g.cancel()
	g.wg.Wait()

	g.mu.Lock()
	workers := make([]*taskworker.Worker, 0, len(g.tasks))
	for _, w := range g.tasks {
		workers = append(workers, w)
	}
	g.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
}

func (g *Gateway) setStatus(status string) {
	md, err := g.hubSession.Config(g.ctx)
	if err != nil {
		g.log.Warnw("failed to read hub session config", "err", err)
		md = hubsdk.Metadata{}
	}
	md.Status = status
	if err := g.hubSession.SetConfig(g.ctx, md); err != nil {
		g.log.Warnw("failed to write hub session status", "status", status, "err", err)
	}
}

func (g *Gateway) pump() {
	defer g.wg.Done()
	defer g.ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-g.ticker.C:
			g.pollOnce()
		}
	}
}

func (g *Gateway) pollOnce() {
	g.mu.Lock()
	lastID := g.lastEventID
	g.mu.Unlock()

	events, err := g.marketplace.FetchEvents(g.ctx, g.cfg.NodeID, lastID)
	if err != nil {
		g.log.Errorw("polling events failed", "err", err)
		return
	}

	for _, ev := range events {
		g.processEvent(ev)
	}
}

// processEvent dispatches one event by kind and, on a recognized kind
// (including the "no worker for X" case), advances last_event_id. Unknown
// kinds are logged and not acknowledged, so they are redelivered.
func (g *Gateway) processEvent(ev marketplace.Event) {
	switch ev.Kind {
	case marketplace.EventTask:
		g.spawnWorker(*ev.Task)
	case marketplace.EventSubtask:
		g.routeTo(ev.Subtask.TaskID, func(w *taskworker.Worker) { w.SubmitSubtask(*ev.Subtask) })
	case marketplace.EventResource:
		key := ev.Resource.ResID
		if key == "" {
			key = ev.Resource.TaskID
		}
		g.routeTo(key, func(w *taskworker.Worker) { w.SubmitResource(*ev.Resource) })
	case marketplace.EventSubtaskVerification:
		g.routeTo(ev.SubtaskVerification.TaskID, func(w *taskworker.Worker) {
			w.SubmitVerification(*ev.SubtaskVerification)
		})
	default:
		g.log.Warnw("invalid event", "event_id", ev.EventID, "kind", ev.Kind)
		return
	}
	g.ackEvent(ev.EventID)
}

func (g *Gateway) spawnWorker(task marketplace.Task) {
	deps := taskworker.Deps{
		Marketplace: g.marketplace,
		HubSession:  g.hubSession,
		WorkMan:     g.workman,
		NodeID:      g.cfg.NodeID,
		GwURL:       g.cfg.GwURL,
		DavURL:      g.cfg.DavURL,
		Docker:      g.cfg.Docker,
		Log:         g.log,
	}
	w := taskworker.New(deps, task)

	g.mu.Lock()
	g.tasks[task.TaskID] = w
	g.stats.Tasks++
	g.mu.Unlock()
}

func (g *Gateway) routeTo(taskID string, dispatch func(*taskworker.Worker)) {
	g.mu.Lock()
	w, ok := g.tasks[taskID]
	g.mu.Unlock()

	if !ok {
		g.log.Warnw("no worker for", "task_id", taskID)
		return
	}
	dispatch(w)
}

// ackEvent advances last_event_id monotonically; acknowledging an
// out-of-order earlier event must never lower it.
func (g *Gateway) ackEvent(eventID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if eventID > g.lastEventID {
		g.lastEventID = eventID
	}
	g.log.Infow("event processed", "event_id", eventID, "last_event_id", g.lastEventID)
}

// Alive reports whether the gateway's poll loop is still running.
func (g *Gateway) Alive() bool {
	select {
	case <-g.ctx.Done():
		return false
	default:
		return true
	}
}

// SessionID returns the hub session this gateway owns.
func (g *Gateway) SessionID() string {
	return g.hubSession.ID
}

// LastEventID returns the current monotonic watermark, mostly for tests.
func (g *Gateway) LastEventID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastEventID
}

// AggregateStats prunes disconnected workers and sums this gateway's own
// tallies with each live worker's contribution, mirroring
// original_source/src/gateway.rs's Handler<Stats> fold over every task's
// own StatsData.
func (g *Gateway) AggregateStats() Stats {
	g.mu.Lock()
	live := make([]*taskworker.Worker, 0, len(g.tasks))
	for taskID, w := range g.tasks {
		if w.Closed() {
			delete(g.tasks, taskID)
			continue
		}
		live = append(live, w)
	}
	total := g.stats
	g.mu.Unlock()

	for _, w := range live {
		ws := w.Stats()
		total.add(Stats{Subtasks: ws.Subtasks, SubtasksDone: ws.SubtasksDone, Fails: ws.Fails})
	}
	return total
}
