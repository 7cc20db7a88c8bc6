package background

import (
	"context"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"

	"github.com/nearhelp/nearhelp-api/external/fcm"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
	"github.com/nearhelp/nearhelp-api/utils"
)

const (
	dispatcherLogPrefix = "dispatcher"

	NotificationNewRequest       = "NEW_REQUEST"
	NotificationRequestAttended  = "REQUEST_ATTENDED"
	NotificationRequestFinished  = "REQUEST_FINISHED"
	NotificationRequestCancelled = "REQUEST_CANCELLED"
)

// Pusher delivers a message to device tokens and reports per token
type Pusher interface {
	SendBatch(ctx context.Context, tokens []string, msg fcm.Message) ([]fcm.Outcome, error)
}

// Dispatcher fans out request events to volunteers and requesters. Every
// delivery is best effort: failures are logged and never returned to the
// request lifecycle.
type Dispatcher struct {
	requests store.RequestStore
	users    store.UserStore
	matcher  *matching.Service
	pusher   Pusher
	language string
}

func NewDispatcher(requests store.RequestStore, users store.UserStore, matcher *matching.Service, pusher Pusher, language string) *Dispatcher {
	if language == "" {
		language = "en"
	}
	return &Dispatcher{
		requests: requests,
		users:    users,
		matcher:  matcher,
		pusher:   pusher,
		language: language,
	}
}

var messageIDs = map[string]string{
	NotificationNewRequest:       "notification.new_request",
	NotificationRequestAttended:  "notification.request_attended",
	NotificationRequestFinished:  "notification.request_finished",
	NotificationRequestCancelled: "notification.request_cancelled",
}

var defaultTitles = map[string]string{
	NotificationNewRequest:       "New Assistance Request",
	NotificationRequestAttended:  "Help is on the way",
	NotificationRequestFinished:  "Request completed",
	NotificationRequestCancelled: "Request cancelled",
}

func (d *Dispatcher) message(notificationType string, r *schema.Request) fcm.Message {
	category := utils.Localize(d.language, &i18n.Message{
		ID:    fmt.Sprintf("category.%s.name", r.Category),
		Other: string(r.Category),
	}, nil)

	id := messageIDs[notificationType]
	title := utils.Localize(d.language, &i18n.Message{
		ID:    id + ".title",
		Other: defaultTitles[notificationType],
	}, nil)
	body := utils.Localize(d.language, &i18n.Message{
		ID:    id + ".body",
		Other: "{{.Category}}",
	}, map[string]interface{}{"Category": category})

	return fcm.Message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"request_id": r.ID,
			"type":       notificationType,
			"category":   string(r.Category),
			"status":     string(r.Status),
		},
	}
}

// send pushes msg to every user in a single batch and returns the ids of
// the users it was sent to. Users without a device token are skipped.
func (d *Dispatcher) send(ctx context.Context, users []schema.User, msg fcm.Message) []string {
	tokens := make([]string, 0, len(users))
	recipients := make([]string, 0, len(users))
	for _, u := range users {
		if !u.HasDeviceToken() {
			continue
		}
		tokens = append(tokens, u.DeviceToken)
		recipients = append(recipients, u.ID)
	}

	entry := log.WithFields(log.Fields{
		"prefix":     dispatcherLogPrefix,
		"request_id": msg.Data["request_id"],
		"type":       msg.Data["type"],
	})

	if len(tokens) == 0 {
		entry.Debug("no endpoint to notify")
		return recipients
	}

	outcomes, err := d.pusher.SendBatch(ctx, tokens, msg)
	if err != nil {
		entry.Warnf("send batch with error: %s", err)
		return recipients
	}

	failed := 0
	for i, o := range outcomes {
		if o.Delivered() {
			continue
		}
		failed++
		userID := ""
		if i < len(recipients) {
			userID = recipients[i]
		}
		entry.WithField("user_id", userID).Warnf("deliver notification with error: %s", o.Err)
	}
	entry.Infof("notification sent to %d endpoints, %d failed", len(tokens), failed)

	return recipients
}

// NotifyNewRequest alerts nearby volunteers of a pending request. A
// volunteer is alerted at most once per request: everyone a message was
// sent to joins the notified set, whatever the delivery outcome.
func (d *Dispatcher) NotifyNewRequest(ctx context.Context, requestID string) error {
	r, err := d.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	entry := log.WithFields(log.Fields{
		"prefix":     dispatcherLogPrefix,
		"request_id": r.ID,
	})

	if r.Status != schema.StatusPending {
		entry.Infof("skip broadcast of a %s request", r.Status)
		return nil
	}

	candidates, err := d.matcher.FindCandidateVolunteers(ctx, r.Location, matching.Options{
		Exclude: []string{r.Owner},
	})
	if err != nil {
		return err
	}

	users := make([]schema.User, 0, len(candidates))
	for _, c := range candidates {
		if r.WasNotified(c.User.ID) {
			continue
		}
		users = append(users, c.User)
	}
	entry.Debugf("%d candidates, %d not yet notified", len(candidates), len(users))

	recipients := d.send(ctx, users, d.message(NotificationNewRequest, r))
	if len(recipients) == 0 {
		return nil
	}

	return d.requests.AddNotifiedVolunteers(ctx, r.ID, recipients)
}

// NotifyStatusChange tells the other side of a request about a transition
func (d *Dispatcher) NotifyStatusChange(ctx context.Context, requestID string, status schema.Status) error {
	r, err := d.requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	var notificationType string
	var userIDs []string

	switch status {
	case schema.StatusAttended:
		notificationType = NotificationRequestAttended
		userIDs = []string{r.Owner}
	case schema.StatusFinished:
		notificationType = NotificationRequestFinished
		if r.AssignedVolunteer != nil {
			userIDs = []string{*r.AssignedVolunteer}
		}
	case schema.StatusCancelled:
		notificationType = NotificationRequestCancelled
		userIDs = r.NotifiedVolunteers
	default:
		return nil
	}

	if len(userIDs) == 0 {
		return nil
	}

	users, err := d.users.GetUsers(ctx, userIDs)
	if err != nil {
		return err
	}

	d.send(ctx, users, d.message(notificationType, r))
	return nil
}

// LogPusher only logs messages. It stands in for push delivery when no
// credentials are configured.
type LogPusher struct{}

func (LogPusher) SendBatch(ctx context.Context, tokens []string, msg fcm.Message) ([]fcm.Outcome, error) {
	log.WithFields(log.Fields{
		"prefix": dispatcherLogPrefix,
		"title":  msg.Title,
		"data":   msg.Data,
	}).Infof("push disabled, skip %d endpoints", len(tokens))

	outcomes := make([]fcm.Outcome, len(tokens))
	for i, t := range tokens {
		outcomes[i] = fcm.Outcome{Token: t}
	}
	return outcomes, nil
}
