package api

import (
	"bytes"
	"fmt"
	"strconv"

	"sdportal/internal/jsonbig"
)

// TaskType selects the kind of inference job.
type TaskType int

const (
	TaskTypeSD TaskType = iota
	TaskTypeLLM
)

func (t TaskType) String() string {
	switch t {
	case TaskTypeSD:
		return "sd"
	case TaskTypeLLM:
		return "llm"
	default:
		return "task_type(" + strconv.Itoa(int(t)) + ")"
	}
}

// TaskStatus is the lifecycle state the relay reports for a task.
type TaskStatus int

const (
	TaskStatusPending TaskStatus = iota
	TaskStatusTransactionSent
	TaskStatusBlockchainConfirmed
	TaskStatusParamsUploaded
	TaskStatusPendingResult
	TaskStatusAborted
	TaskStatusSuccess
)

var taskStatusNames = map[TaskStatus]string{
	TaskStatusPending:             "pending",
	TaskStatusTransactionSent:     "transaction_sent",
	TaskStatusBlockchainConfirmed: "blockchain_confirmed",
	TaskStatusParamsUploaded:      "params_uploaded",
	TaskStatusPendingResult:       "pending_result",
	TaskStatusAborted:             "aborted",
	TaskStatusSuccess:             "success",
}

func (s TaskStatus) String() string {
	if name, ok := taskStatusNames[s]; ok {
		return name
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether the relay will not move the task any further.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusAborted || s == TaskStatusSuccess
}

// Identifier is a server-assigned id. The relay emits some ids as JSON
// numbers wider than 64 bits and others as strings; both decode losslessly.
type Identifier string

// MarshalJSON writes canonical integer identifiers back as bare numbers.
// Anything else, including "0042" or "+7", stays a string.
func (id Identifier) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := jsonbig.ParseInt(string(id)); err == nil && n.String() == string(id) {
		return n.MarshalJSON()
	}
	return jsonbig.Marshal(string(id))
}

func (id *Identifier) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*id = ""
	case trimmed[0] == '"':
		var s string
		if err := jsonbig.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = Identifier(s)
	default:
		var n jsonbig.Int
		if err := n.UnmarshalJSON(trimmed); err != nil {
			return fmt.Errorf("identifier: %w", err)
		}
		*id = Identifier(n.String())
	}
	return nil
}

func (id Identifier) String() string {
	return string(id)
}

// WalletBalance is the application wallet state.
type WalletBalance struct {
	Address string      `json:"address"`
	Balance jsonbig.Int `json:"balance"`
}

// BaseModel is a base model catalog entry. Default steps and cfg are present
// when the catalog recommends values for the model.
type BaseModel struct {
	ID           Identifier `json:"id"`
	Name         string     `json:"name"`
	ModelType    string     `json:"model_type"`
	DefaultSteps *int       `json:"default_steps,omitempty"`
	DefaultCFG   *int       `json:"default_cfg,omitempty"`
}

// LoraModel is a LoRA catalog entry.
type LoraModel struct {
	ID        Identifier `json:"id"`
	Name      string     `json:"name"`
	Model     string     `json:"model"`
	ModelType string     `json:"model_type"`
}

// NodeStats describes one compute node on the network.
type NodeStats struct {
	Address  string     `json:"address"`
	Status   NodeStatus `json:"status"`
	GPUModel string     `json:"gpu_model"`
	GPUVRAM  int        `json:"gpu_vram"`
}

// NodeStatus is the relay's node state code.
type NodeStatus int

// TaskReceipt is returned by CreateTask.
type TaskReceipt struct {
	ID       Identifier `json:"id"`
	ClientID string     `json:"client_id"`
	Status   TaskStatus `json:"status"`
}

// TaskState is returned by TaskStatus.
type TaskState struct {
	ID          Identifier `json:"id"`
	ClientID    string     `json:"client_id"`
	Status      TaskStatus `json:"status"`
	TaskType    TaskType   `json:"task_type"`
	NumImages   int        `json:"num_images,omitempty"`
	AbortReason string     `json:"abort_reason,omitempty"`
}

// createTaskRequest is the POST /inference_tasks body.
type createTaskRequest struct {
	ClientID  string   `json:"client_id"`
	TaskArgs  string   `json:"task_args"`
	TaskType  TaskType `json:"task_type"`
	VRAMLimit *int     `json:"vram_limit,omitempty"`
}
