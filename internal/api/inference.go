package api

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// Inference exposes task submission and retrieval.
type Inference struct {
	client  Requester
	encoder ImageEncoder
}

// CreateTask submits serialized task arguments. vramLimit is sent only when
// non-nil.
func (i *Inference) CreateTask(ctx context.Context, clientID, taskArgs string, taskType TaskType, vramLimit *int) (*TaskReceipt, error) {
	body := createTaskRequest{
		ClientID:  clientID,
		TaskArgs:  taskArgs,
		TaskType:  taskType,
		VRAMLimit: vramLimit,
	}
	var out TaskReceipt
	if err := i.client.Post(ctx, "/inference_tasks", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskStatus fetches the current state of a task.
func (i *Inference) TaskStatus(ctx context.Context, clientID, taskID string) (*TaskState, error) {
	var out TaskState
	if err := i.client.Get(ctx, taskPath(clientID, taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImageURL returns the absolute URL of the n-th result image.
func (i *Inference) ImageURL(clientID, taskID string, n int) string {
	return i.client.URL(taskPath(clientID, taskID) + "/images/" + strconv.Itoa(n))
}

// Image fetches the n-th result image as a data URL.
func (i *Inference) Image(ctx context.Context, clientID, taskID string, n int) (string, error) {
	if i.encoder == nil {
		return "", errors.New("api: no image encoder configured")
	}
	return i.encoder.Encode(ctx, i.ImageURL(clientID, taskID, n))
}

func taskPath(clientID, taskID string) string {
	return "/inference_tasks/" + url.PathEscape(clientID) + "/" + url.PathEscape(taskID)
}
