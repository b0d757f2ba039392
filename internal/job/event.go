package job

import "encoding/json"

// EventType discriminates messages on a job's event channel.
type EventType string

const (
	EventStatus    EventType = "status"
	EventNode      EventType = "node"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message published for a job. Payload holds the raw JSON of
// the variant payload so subscribers can relay events without re-encoding.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StatusPayload is the payload of a status event.
type StatusPayload struct {
	Status               Status `json:"status"`
	EstimatedWaitSeconds *int   `json:"estimatedWaitSeconds,omitempty"`
}

// NodePayload is the payload of a node event.
type NodePayload struct {
	Node Node `json:"node"`
}

// Node is one labeled step of a job's progress tree. ParentID is nil for
// the root; every other ParentID references a node emitted earlier in the
// same job.
type Node struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentId"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Status   Status  `json:"status"`
	ToolUsed *string `json:"toolUsed"`
	Depth    int     `json:"depth"`
}

// NewStatusEvent builds a status event. estimatedWait may be nil.
func NewStatusEvent(status Status, estimatedWait *int) Event {
	payload, _ := json.Marshal(StatusPayload{Status: status, EstimatedWaitSeconds: estimatedWait})
	return Event{Type: EventStatus, Payload: payload}
}

// NewNodeEvent builds a node event.
func NewNodeEvent(n Node) Event {
	payload, _ := json.Marshal(NodePayload{Node: n})
	return Event{Type: EventNode, Payload: payload}
}

// NewHeartbeatEvent builds a heartbeat event with an empty payload.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Payload: json.RawMessage(`{}`)}
}

// StatusOf decodes the status payload of a status event. ok is false for
// any other event type or an undecodable payload.
func StatusOf(ev Event) (StatusPayload, bool) {
	if ev.Type != EventStatus {
		return StatusPayload{}, false
	}
	var p StatusPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return StatusPayload{}, false
	}
	return p, true
}
