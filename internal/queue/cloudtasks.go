package queue

import (
	"context"
	"fmt"
	"strings"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
)

// CloudTasksQueue enqueues HTTP tasks on a Google Cloud Tasks queue.
// Retry policy, backoff and dead-lettering are configured on the queue itself.
type CloudTasksQueue struct {
	client *cloudtasks.Client
	parent string
}

// QueuePath returns the fully qualified queue name.
func QueuePath(project, location, queueID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", project, location, queueID)
}

func NewCloudTasksQueue(ctx context.Context, project, location, queueID string) (*CloudTasksQueue, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &CloudTasksQueue{
		client: client,
		parent: QueuePath(project, location, queueID),
	}, nil
}

func (q *CloudTasksQueue) Enqueue(ctx context.Context, t Task) (Handle, error) {
	task, err := q.client.CreateTask(ctx, createTaskRequest(q.parent, t))
	if err != nil {
		return Handle{}, enqueueError(err, t.URL)
	}
	return Handle{Name: task.GetName()}, nil
}

func (q *CloudTasksQueue) Close() error {
	return q.client.Close()
}

func createTaskRequest(parent string, t Task) *cloudtaskspb.CreateTaskRequest {
	method := cloudtaskspb.HttpMethod_POST
	if v, ok := cloudtaskspb.HttpMethod_value[strings.ToUpper(t.Method)]; ok {
		method = cloudtaskspb.HttpMethod(v)
	}
	return &cloudtaskspb.CreateTaskRequest{
		Parent: parent,
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{
				HttpRequest: &cloudtaskspb.HttpRequest{
					HttpMethod: method,
					Url:        t.URL,
					Headers:    t.Headers,
					Body:       t.Body,
				},
			},
		},
	}
}
