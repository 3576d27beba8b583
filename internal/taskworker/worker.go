// Package taskworker implements the per-task state machine (C4): it
// acknowledges the task, reserves a peer, deploys the render environment,
// applies resource and subtask readiness signals, drives compute, and
// reports results. Grounded on original_source/src/task_worker.rs, with
// joinact.rs's parallel join translated to a sync.WaitGroup over two
// goroutines per SPEC_FULL.md's concurrency section.
package taskworker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/prekucki/gu-blender-mediator/internal/blenderspec"
	"github.com/prekucki/gu-blender-mediator/internal/hubsdk"
	"github.com/prekucki/gu-blender-mediator/internal/marketplace"
	"github.com/prekucki/gu-blender-mediator/internal/webdav"
	"github.com/prekucki/gu-blender-mediator/internal/workman"
	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

const deploymentRetryAttempts = 5

// specPath is where DoSubTask writes the normalized subtask spec inside the
// peer container. REDESIGN FLAG #2: kept absolute and consistent with the
// resources/output volume paths used everywhere else.
const specPath = "/golem/resources/spec.json"

const resourceArchivePath = "/golem/resources/gu.zip"

// Deps bundles the collaborators one Worker needs. A SessionGateway shares
// one Deps (minus TaskID) across every worker it spawns.
type Deps struct {
	Marketplace *marketplace.Client
	HubSession  *hubsdk.Session
	WorkMan     *workman.WorkMan
	NodeID      string
	GwURL       string
	DavURL      string
	Docker      bool
	Log         *zap.SugaredLogger
}

type specWrittenMsg struct{}

type resourceReadyMsg struct {
	outputURI string
}

type renderDoneMsg struct {
	succeeded bool
}

// Worker is the per-task state machine. Inbound events are delivered
// through inbox and processed one at a time in arrival order; any I/O a
// handler starts keeps running concurrently with later handlers, reporting
// its own completion back through inbox so state mutation always happens
// on this single goroutine.
type Worker struct {
	deps   Deps
	task   marketplace.Task
	taskID string

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan any
	done   chan struct{}

	peerID      string
	peerSession *hubsdk.PeerSession
	deployed    bool

	outputURI string
	spec      *blenderspec.SubtaskSpec
	subtaskID string
	state     readiness

	subtasks     uint64
	subtasksDone uint64
	fails        uint64
}

// WorkerStats is one worker's contribution to its gateway's aggregated
// statistics. Grounded on original_source/src/gateway.rs's Handler<Stats>,
// which folds each task's own StatsData (subtasks, subtasks_done, fails)
// into the gateway's running total.
type WorkerStats struct {
	Subtasks     uint64
	SubtasksDone uint64
	Fails        uint64
}

// Stats queries the worker's counters from its mailbox goroutine, mirroring
// the Rust original's per-task Stats message. Returns the zero value if the
// worker has already stopped.
func (w *Worker) Stats() WorkerStats {
	reply := make(chan WorkerStats, 1)
	select {
	case w.inbox <- statsProbeMsg{reply: reply}:
	case <-w.done:
		return WorkerStats{}
	}
	select {
	case s := <-reply:
		return s
	case <-w.done:
		return WorkerStats{}
	}
}

// New constructs a Worker for task and starts its startup join and mailbox
// loop on a background goroutine.
func New(deps Deps, task marketplace.Task) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		deps:   deps,
		task:   task,
		taskID: task.TaskID,
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan any, 32),
		done:   make(chan struct{}),
	}
	go w.start()
	return w
}

// SubmitSubtask enqueues a DoSubTask event. Never blocks the caller for long:
// the gateway's dispatch is fire-and-forget from its own point of view.
func (w *Worker) SubmitSubtask(subtask marketplace.Subtask) {
	w.inbox <- doSubTaskMsg{subtask: subtask}
}

// SubmitResource enqueues a DoResource event.
func (w *Worker) SubmitResource(resource marketplace.Resource) {
	w.inbox <- doResourceMsg{resource: resource}
}

// SubmitVerification enqueues a DoSubtaskVerification event.
func (w *Worker) SubmitVerification(v marketplace.SubtaskVerification) {
	w.inbox <- doVerificationMsg{verification: v}
}

// Closed reports whether the worker has stopped processing its mailbox,
// used by the session gateway to prune disconnected workers.
func (w *Worker) Closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Stop terminates the worker's mailbox loop and cancels any in-flight I/O.
func (w *Worker) Stop() {
	w.cancel()
}

func (w *Worker) start() {
	defer close(w.done)

	var wg sync.WaitGroup
	wg.Add(2)

	var ackErr error
	go func() {
		defer wg.Done()
		ackErr = w.deps.Marketplace.WantToComputeTask(w.ctx, w.deps.NodeID, w.taskID)
	}()

	var peerID string
	var peerSession *hubsdk.PeerSession
	var deployErr error
	go func() {
		defer wg.Done()
		peerID, peerSession, deployErr = w.createDeploymentWithRetry(deploymentRetryAttempts)
	}()

	wg.Wait()

	if ackErr != nil {
		w.deps.Log.Warnw("want_to_compute_task failed at startup", "task", w.taskID, "err", ackErr)
	}
	if deployErr != nil {
		w.deps.Log.Errorw("deployment creation exhausted retries, worker stays inert", "task", w.taskID, "err", deployErr)
	} else {
		w.peerID = peerID
		w.peerSession = peerSession
		w.deployed = true
	}

	w.loop()
}

func (w *Worker) loop() {
	for {
		select {
		case msg := <-w.inbox:
			w.dispatch(msg)
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Worker) dispatch(msg any) {
	switch m := msg.(type) {
	case doSubTaskMsg:
		w.handleDoSubTask(m.subtask)
	case doResourceMsg:
		w.handleDoResource(m.resource)
	case doVerificationMsg:
		w.handleDoSubtaskVerification(m.verification)
	case specWrittenMsg:
		w.state = w.state.withSpec()
		w.maybeStartCompute()
	case resourceReadyMsg:
		w.outputURI = m.outputURI
		w.state = w.state.withResource()
		w.maybeStartCompute()
	case renderDoneMsg:
		if m.succeeded {
			w.subtasksDone++
		} else {
			w.fails++
		}
		w.state = w.state.afterSubtaskDone()
	case probeMsg:
		m.reply <- w.deployed
	case stateProbeMsg:
		m.reply <- w.state
	case statsProbeMsg:
		m.reply <- WorkerStats{Subtasks: w.subtasks, SubtasksDone: w.subtasksDone, Fails: w.fails}
	}
}

// createDeploymentWithRetry attempts, up to attempts times: reserve a peer,
// add it to the hub session, and materialize a render environment on it.
// Any step failing ends that attempt only; the next attempt may land on a
// different peer. Grounded on task_worker.rs's create_deployment_with_retry.
func (w *Worker) createDeploymentWithRetry(attempts int) (string, *hubsdk.PeerSession, error) {
	var errs *multierror.Error

	for i := 0; i < attempts; i++ {
		peerID, err := w.deps.WorkMan.Reserve(w.taskID, w.task.Deadline)
		if err != nil {
			errs = multierror.Append(errs, xerrors.Wrapf(err, "attempt %d: reserve", i+1))
			continue
		}

		if err := w.deps.HubSession.AddPeers(w.ctx, []string{peerID}); err != nil {
			errs = multierror.Append(errs, xerrors.Wrapf(err, "attempt %d: add peer %s to session", i+1, peerID))
			continue
		}

		spec := renderSessionSpec(w.deps.Docker)
		ps, err := w.deps.HubSession.Peer(peerID).NewSession(w.ctx, spec)
		if err != nil {
			errs = multierror.Append(errs, xerrors.Wrapf(err, "attempt %d: create peer session on %s", i+1, peerID))
			continue
		}

		return peerID, ps, nil
	}

	return "", nil, xerrors.Wrap(errs.ErrorOrNil(), "create deployment retries exhausted")
}

func renderSessionSpec(docker bool) hubsdk.CreateSession {
	if docker {
		return hubsdk.DockerBlenderSession()
	}
	return hubsdk.NativeBlenderSession()
}

// handleDoSubTask decodes extra_data, stores the normalized spec, fires a
// fire-and-forget subtask confirmation, and pushes the spec into the peer
// container. Decoding failure is surfaced as a subtask failure report
// rather than left fatal, per SPEC_FULL.md's resolution of open question 3.
func (w *Worker) handleDoSubTask(subtask marketplace.Subtask) {
	w.subtasks++

	spec, err := blenderspec.Decode(subtask.ExtraData)
	if err != nil {
		w.deps.Log.Errorw("failed to decode subtask spec", "subtask", subtask.SubtaskID, "err", err)
		w.fails++
		go func() {
			_ = w.deps.Marketplace.SubtaskResult(w.ctx, w.deps.NodeID, subtask.SubtaskID, marketplace.StatusFailed, "")
		}()
		return
	}

	w.spec = spec
	w.subtaskID = subtask.SubtaskID

	go func() {
		if err := w.deps.Marketplace.ConfirmSubtask(w.ctx, w.deps.NodeID, subtask.SubtaskID); err != nil {
			w.deps.Log.Warnw("confirm_subtask failed", "subtask", subtask.SubtaskID, "err", err)
		}
	}()

	if !w.deployed {
		w.deps.Log.Warnw("deployment not ready, dropping subtask spec", "task", w.taskID)
		return
	}

	payload, err := json.Marshal(spec)
	if err != nil {
		w.deps.Log.Errorw("failed to marshal subtask spec", "subtask", subtask.SubtaskID, "err", err)
		return
	}

	peerSession := w.peerSession
	go func() {
		if err := peerSession.Update(w.ctx, []hubsdk.Command{hubsdk.WriteFileCommand(specPath, payload)}); err != nil {
			w.deps.Log.Errorw("failed to write subtask spec to peer", "subtask", subtask.SubtaskID, "err", err)
			return
		}
		w.inbox <- specWrittenMsg{}
	}()
}

// handleDoResource composes the zip and task URIs from gw_url, creates the
// task's output directory over WebDAV, and pushes a download command to the
// peer. Redundant resource events for an already resource-ready task are a
// no-op, per spec.md's boundary case.
func (w *Worker) handleDoResource(resource marketplace.Resource) {
	if w.state.hasResourceReady() {
		return
	}

	zipURI := fmt.Sprintf("%s/%s/%s", w.deps.GwURL, resource.Path, resource.TaskID)
	taskURI := fmt.Sprintf("%s/%s", w.deps.GwURL, resource.TaskID)

	if !w.deployed {
		w.deps.Log.Warnw("deployment not ready, dropping resource", "task", w.taskID)
		return
	}

	peerSession := w.peerSession
	go func() {
		outputDir, err := webdav.New(taskURI, nil).Mkdir(w.ctx, "output")
		if err != nil {
			w.deps.Log.Errorw("failed to create output directory", "task", w.taskID, "err", err)
			return
		}

		if err := peerSession.Update(w.ctx, []hubsdk.Command{
			hubsdk.DownloadFileCommand(zipURI, resourceArchivePath, hubsdk.Raw),
		}); err != nil {
			w.deps.Log.Errorw("failed to download scene archive to peer", "task", w.taskID, "err", err)
			return
		}

		w.inbox <- resourceReadyMsg{outputURI: outputDir.String()}
	}()
}

// maybeStartCompute launches the render once both readiness signals are set.
func (w *Worker) maybeStartCompute() {
	if w.state != ready {
		return
	}
	go w.compute()
}

// compute allocates a hub blob, runs the render, uploads the artifact to
// both the hub blob store and the WebDAV output endpoint, and reports the
// result to the marketplace.
func (w *Worker) compute() {
	outputFileName := w.spec.ExpectedOutputFileName()
	outputPath := "/golem/output/" + outputFileName
	webdavURI := fmt.Sprintf("%s/%s/%s", w.deps.DavURL, w.taskID, outputFileName)
	resultPath := w.taskID + "/output"

	blob, err := w.deps.HubSession.NewBlob(w.ctx)
	if err != nil {
		w.deps.Log.Errorw("failed to allocate hub blob", "task", w.taskID, "err", err)
		w.reportFailure()
		return
	}

	err = w.peerSession.Update(w.ctx, []hubsdk.Command{
		hubsdk.OpenCommand(),
		hubsdk.WaitCommand(),
		hubsdk.UploadFileCommand(blob.URI, outputPath, hubsdk.Raw),
		hubsdk.UploadFileCommand(webdavURI, outputPath, hubsdk.Raw),
	})
	if err != nil {
		w.deps.Log.Errorw("render failed", "task", w.taskID, "err", err)
		w.reportFailure()
		return
	}

	if err := w.deps.Marketplace.SubtaskResult(w.ctx, w.deps.NodeID, w.subtaskID, marketplace.StatusSucceeded, resultPath); err != nil {
		w.deps.Log.Warnw("subtask_result failed", "subtask", w.subtaskID, "err", err)
	}

	w.inbox <- renderDoneMsg{succeeded: true}
}

func (w *Worker) reportFailure() {
	if err := w.deps.Marketplace.SubtaskResult(w.ctx, w.deps.NodeID, w.subtaskID, marketplace.StatusFailed, ""); err != nil {
		w.deps.Log.Warnw("subtask_result (failure report) failed", "subtask", w.subtaskID, "err", err)
	}
	w.inbox <- renderDoneMsg{succeeded: false}
}

// handleDoSubtaskVerification drives re-subscription pipelining: an OK
// verdict requests the next subtask; a "task not found" reason is normal
// task completion; any other non-OK reason is a subtask-level failure that
// does not stop the worker. Grounded on task_worker.rs's
// Handler<DoSubtaskVerification>.
func (w *Worker) handleDoSubtaskVerification(v marketplace.SubtaskVerification) {
	if v.SubtaskID != w.subtaskID {
		w.deps.Log.Warnw("verification for unexpected subtask", "got", v.SubtaskID, "want", w.subtaskID)
	}

	if v.Result == marketplace.VerificationOK {
		go func() {
			if err := w.deps.Marketplace.WantToComputeTask(w.ctx, w.deps.NodeID, w.taskID); err != nil {
				w.deps.Log.Warnw("want_to_compute_task failed after verification", "task", w.taskID, "err", err)
			}
		}()
		return
	}

	if strings.Contains(v.Reason, w.taskID+" not found") {
		w.deps.Log.Infow("task finished", "task", w.taskID)
		return
	}

	w.deps.Log.Errorw("subtask verification failed", "task", w.taskID, "subtask", v.SubtaskID, "reason", v.Reason)
}
