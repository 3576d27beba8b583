package taskworker

import "github.com/prekucki/gu-blender-mediator/internal/marketplace"

type doSubTaskMsg struct {
	subtask marketplace.Subtask
}

type doResourceMsg struct {
	resource marketplace.Resource
}

type doVerificationMsg struct {
	verification marketplace.SubtaskVerification
}

// probeMsg and stateProbeMsg let tests synchronize with the mailbox
// goroutine without racing on Worker's unexported fields.
type probeMsg struct {
	reply chan<- bool
}

type stateProbeMsg struct {
	reply chan<- readiness
}

type statsProbeMsg struct {
	reply chan<- WorkerStats
}
