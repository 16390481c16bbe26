package workflow

import (
	"sync"
	"time"
)

// ExecutionStatus represents the status of an execution
type ExecutionStatus string

const (
	// ExecutionStatusRunning indicates the execution is in progress
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted indicates the execution completed successfully
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed indicates the execution failed
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// NodeExecution records one visit of a node
type NodeExecution struct {
	Node      string          `json:"node"`
	Flow      string          `json:"flow,omitempty"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Status    ExecutionStatus `json:"status"`
	Action    Action          `json:"action,omitempty"`
	Attempts  int             `json:"attempts"`
	Fallback  bool            `json:"fallback,omitempty"`
	Error     string          `json:"error,omitempty"`

	invocation uint64
}

// Termination records why a flow stopped traversing.
type Termination struct {
	Flow   string `json:"flow"`
	Node   string `json:"node"`
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// ExecutionHistory records the complete execution path of a run. Feed it
// through Emitter.
type ExecutionHistory struct {
	RunID        string           `json:"run_id"`
	Flow         string           `json:"flow"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	Duration     time.Duration    `json:"duration"`
	Status       ExecutionStatus  `json:"status"`
	LastAction   Action           `json:"last_action,omitempty"`
	Nodes        []*NodeExecution `json:"nodes"`
	Terminations []Termination    `json:"terminations,omitempty"`
	Error        string           `json:"error,omitempty"`
	mu           sync.RWMutex
}

// NewExecutionHistory creates an empty history. RunID and Flow are taken
// from the first flow_start event.
func NewExecutionHistory() *ExecutionHistory {
	return &ExecutionHistory{
		Status: ExecutionStatusRunning,
		Nodes:  make([]*NodeExecution, 0),
	}
}

// Emitter returns the Emitter that records events into h.
func (h *ExecutionHistory) Emitter() Emitter {
	return h.record
}

func (h *ExecutionHistory) record(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch ev.Type {
	case EventFlowStart:
		if h.Flow == "" {
			h.Flow = ev.Flow
			h.RunID = ev.RunID
			h.StartTime = ev.Timestamp
		}
	case EventNodeStart:
		h.Nodes = append(h.Nodes, &NodeExecution{
			Node:      ev.Node,
			Flow:      ev.Flow,
			StartTime: ev.Timestamp,
			Status:    ExecutionStatusRunning,
			Attempts:  1,

			invocation: ev.Invocation,
		})
	case EventNodeRetry:
		if n := h.running(ev); n != nil {
			n.Attempts = ev.Attempt
		}
	case EventNodeFallback:
		if n := h.running(ev); n != nil {
			n.Fallback = true
		}
	case EventNodeComplete, EventNodeError:
		n := h.running(ev)
		if n == nil {
			return
		}
		n.EndTime = ev.Timestamp
		n.Duration = ev.Duration
		n.Action = ev.Action
		n.Status = ExecutionStatusCompleted
		if ev.Err != nil {
			n.Status = ExecutionStatusFailed
			n.Error = ev.Err.Error()
		}
	case EventFlowTerminated:
		h.Terminations = append(h.Terminations, Termination{
			Flow:   ev.Flow,
			Node:   ev.Node,
			Action: ev.Action,
			Reason: ev.Reason,
		})
	case EventFlowComplete:
		if ev.Flow != h.Flow {
			return
		}
		h.EndTime = ev.Timestamp
		h.Duration = ev.Duration
		h.LastAction = ev.Action
		h.Status = ExecutionStatusCompleted
		if ev.Err != nil {
			h.Status = ExecutionStatusFailed
			h.Error = ev.Err.Error()
		}
	}
}

// running returns the unfinished visit the event belongs to. Events with an
// invocation ID match exactly; others fall back to the latest unfinished
// visit of the same node.
func (h *ExecutionHistory) running(ev Event) *NodeExecution {
	for i := len(h.Nodes) - 1; i >= 0; i-- {
		n := h.Nodes[i]
		if n.Status != ExecutionStatusRunning {
			continue
		}
		if ev.Invocation != 0 {
			if n.invocation == ev.Invocation {
				return n
			}
			continue
		}
		if n.Node == ev.Node && n.Flow == ev.Flow {
			return n
		}
	}
	return nil
}

// GetNodes returns a copy of the node executions
func (h *ExecutionHistory) GetNodes() []*NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nodes := make([]*NodeExecution, len(h.Nodes))
	copy(nodes, h.Nodes)
	return nodes
}

// Path returns the visited node names in order.
func (h *ExecutionHistory) Path() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	path := make([]string, len(h.Nodes))
	for i, n := range h.Nodes {
		path[i] = n.Node
	}
	return path
}

// Visits counts the visits of a node.
func (h *ExecutionHistory) Visits(node string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.Nodes {
		if n.Node == node {
			count++
		}
	}
	return count
}

// TerminationReason returns why the outermost flow stopped, or "" if it
// has not stopped on a missing successor.
func (h *ExecutionHistory) TerminationReason() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.Terminations) - 1; i >= 0; i-- {
		if h.Terminations[i].Flow == h.Flow {
			return h.Terminations[i].Reason
		}
	}
	return ""
}

// GetStatus returns the current run status.
func (h *ExecutionHistory) GetStatus() ExecutionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Status
}
