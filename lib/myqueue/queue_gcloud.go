package myqueue

import (
	"context"
	"fmt"
	"os"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
)

// Delay gives the webhook transaction time to commit before the trigger arrives.
const triggerDelay = 5 * time.Second

type gcloudTaskQueue struct {
	client    *cloudtasks.Client
	queueName string
	logger    mylog.Logger
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGcloudQueue
	}
}

func newGcloudQueue(c context.Context) (TaskQueuer, func(), error) {
	cloudTaskClient, err := cloudtasks.NewClient(c)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating cloudtask-client: %s", err)
	}
	return &gcloudTaskQueue{
			client:    cloudTaskClient,
			queueName: queueNameFromEnv(os.Getenv),
			logger:    mylog.New("queue"),
		}, func() {
			cloudTaskClient.Close()
		}, nil
}

func queueNameFromEnv(getenv func(string) string) string {
	queueName := getenv("QUEUE_NAME")
	if queueName == "" {
		queueName = "default"
	}
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", getenv("GOOGLE_CLOUD_PROJECT"), getenv("LOCATION_ID"), queueName)
}

func (q *gcloudTaskQueue) taskName(taskUID string) string {
	return fmt.Sprintf("%s/tasks/%s", q.queueName, taskUID)
}

func (q *gcloudTaskQueue) Enqueue(c context.Context, task Task) error {
	taskName := q.taskName(task.UID)
	_, err := q.client.CreateTask(c, &taskspb.CreateTaskRequest{
		Parent: q.queueName,
		Task: &taskspb.Task{
			Name:         taskName, // de-duplicate
			ScheduleTime: timestamppb.New(time.Now().Add(triggerDelay)),
			MessageType: &taskspb.Task_AppEngineHttpRequest{
				AppEngineHttpRequest: &taskspb.AppEngineHttpRequest{
					HttpMethod:  taskspb.HttpMethod_PUT,
					RelativeUri: task.TriggerPath,
					Headers:     task.Headers,
					Body:        task.Payload,
				},
			},
			View: taskspb.Task_BASIC,
		},
	})
	if err != nil {
		rsp, ok := grpcStatus.FromError(err)
		if ok && rsp.Code() == grpcCodes.AlreadyExists {
			q.logger.Log(c, task.UID, mylog.SeverityInfo, "Trigger %s already queued", taskName)
			return nil
		}
		return fmt.Errorf("error submitting trigger %s: %s", task.UID, err)
	}
	q.logger.Log(c, task.UID, mylog.SeverityDebug, "Queued trigger for %s", task.TriggerPath)

	return nil
}

func (q *gcloudTaskQueue) Attempts(c context.Context, taskUID string) (int32, int32) {
	var maxAttempts int32 = -1

	queue, err := q.client.GetQueue(c, &taskspb.GetQueueRequest{Name: q.queueName})
	if err != nil {
		q.logger.Log(c, taskUID, mylog.SeverityWarn, "Error getting queue %s: %s", q.queueName, err)
		return 0, maxAttempts
	}
	if queue.RetryConfig != nil {
		maxAttempts = queue.RetryConfig.MaxAttempts
	}

	task, err := q.client.GetTask(c, &taskspb.GetTaskRequest{Name: q.taskName(taskUID)})
	if err != nil {
		q.logger.Log(c, taskUID, mylog.SeverityWarn, "Error getting task %s: %s", taskUID, err)
		return 0, maxAttempts
	}

	return task.DispatchCount, maxAttempts
}
