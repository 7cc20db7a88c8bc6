package background

import (
	"context"
	"errors"

	"github.com/RichardKnop/machinery/v1"

	"github.com/nearhelp/nearhelp-api/schema"
)

// Manager runs the notification tasks on a machinery worker
type Manager struct {
	taskServer *machinery.Server
	dispatcher *Dispatcher
	worker     *machinery.Worker
}

func NewManager(taskServer *machinery.Server, dispatcher *Dispatcher) *Manager {
	return &Manager{
		taskServer: taskServer,
		dispatcher: dispatcher,
	}
}

func (m *Manager) RegisterTask(name string, taskFunc interface{}) error {
	return m.taskServer.RegisterTask(name, taskFunc)
}

// RegisterTasks registers every notification task
func (m *Manager) RegisterTasks() error {
	if err := m.RegisterTask(TaskBroadcastNewRequest, m.BroadcastNewRequest); err != nil {
		return err
	}
	return m.RegisterTask(TaskNotifyRequestStatus, m.NotifyRequestStatus)
}

// BroadcastNewRequest is a background job to alert volunteers around a
// request that was just created
func (m *Manager) BroadcastNewRequest(requestID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDispatchTimeout)
	defer cancel()

	return m.dispatcher.NotifyNewRequest(ctx, requestID)
}

// NotifyRequestStatus is a background job to tell the other side of a
// request about its new status
func (m *Manager) NotifyRequestStatus(requestID, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDispatchTimeout)
	defer cancel()

	return m.dispatcher.NotifyStatusChange(ctx, requestID, schema.Status(status))
}

// Run spawn workers to execute background jobs
func (m *Manager) Run(consumerTag string, concurrency int) error {
	if m.worker != nil {
		return errors.New("background worker has started")
	}
	m.worker = m.taskServer.NewWorker(consumerTag, concurrency)
	return m.worker.Launch()
}

// Stop quits the worker after its running jobs
func (m *Manager) Stop() {
	if m.worker != nil {
		m.worker.Quit()
	}
}
