package background

import (
	"context"
	"sync"
	"time"

	"github.com/RichardKnop/machinery/v1/backends/result"
	"github.com/RichardKnop/machinery/v1/tasks"
	log "github.com/sirupsen/logrus"

	"github.com/nearhelp/nearhelp-api/schema"
)

const (
	logPrefix = "background"

	TaskBroadcastNewRequest = "broadcast_new_request"
	TaskNotifyRequestStatus = "notify_request_status"

	defaultDispatchTimeout = 30 * time.Second
)

// Trigger starts notifications without waiting for their delivery
type Trigger interface {
	BroadcastNewRequest(requestID string) error
	NotifyStatusChange(requestID string, status schema.Status) error
}

// AsyncTrigger runs the dispatcher in a goroutine of the api process. The
// dispatch context is detached from the caller so it outlives the http
// request that triggered it.
type AsyncTrigger struct {
	dispatcher *Dispatcher
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewAsyncTrigger(dispatcher *Dispatcher, timeout time.Duration) *AsyncTrigger {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &AsyncTrigger{
		dispatcher: dispatcher,
		timeout:    timeout,
	}
}

func (t *AsyncTrigger) run(requestID string, job func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := job(ctx); err != nil {
			log.WithFields(log.Fields{
				"prefix":     logPrefix,
				"request_id": requestID,
			}).Warnf("dispatch notification with error: %s", err)
		}
	}()
}

func (t *AsyncTrigger) BroadcastNewRequest(requestID string) error {
	t.run(requestID, func(ctx context.Context) error {
		return t.dispatcher.NotifyNewRequest(ctx, requestID)
	})
	return nil
}

func (t *AsyncTrigger) NotifyStatusChange(requestID string, status schema.Status) error {
	t.run(requestID, func(ctx context.Context) error {
		return t.dispatcher.NotifyStatusChange(ctx, requestID, status)
	})
	return nil
}

// Wait blocks until every started dispatch has returned
func (t *AsyncTrigger) Wait() {
	t.wg.Wait()
}

// TaskSender enqueues a machinery task
type TaskSender interface {
	SendTask(signature *tasks.Signature) (*result.AsyncResult, error)
}

// QueueTrigger hands notifications to the machinery worker. Tasks are
// never retried.
type QueueTrigger struct {
	sender TaskSender
}

func NewQueueTrigger(sender TaskSender) *QueueTrigger {
	return &QueueTrigger{sender: sender}
}

func (t *QueueTrigger) send(signature *tasks.Signature) error {
	signature.RetryCount = 0
	if _, err := t.sender.SendTask(signature); err != nil {
		log.WithField("prefix", logPrefix).Errorf("enqueue task %s with error: %s", signature.Name, err)
		return err
	}
	return nil
}

func (t *QueueTrigger) BroadcastNewRequest(requestID string) error {
	return t.send(&tasks.Signature{
		Name: TaskBroadcastNewRequest,
		Args: []tasks.Arg{
			{Type: "string", Value: requestID},
		},
	})
}

func (t *QueueTrigger) NotifyStatusChange(requestID string, status schema.Status) error {
	return t.send(&tasks.Signature{
		Name: TaskNotifyRequestStatus,
		Args: []tasks.Arg{
			{Type: "string", Value: requestID},
			{Type: "string", Value: string(status)},
		},
	})
}
