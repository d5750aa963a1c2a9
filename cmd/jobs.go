package main

import (
	"context"
	"encoding/json"

	"github.com/giro-sh/license-server/internal/jobx"
	"github.com/giro-sh/license-server/internal/notify"
)

// jobTypeNotifyEmail is the only job type this service enqueues today: a
// best-effort security notification, kept off the request path per §5.
const jobTypeNotifyEmail = "notify.email"

type notifyEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// jobxEmailNotifier adapts jobx.Enqueuer to admin.EmailNotifier so the
// Identity & Session service can ask for an email to be sent without
// knowing queues exist.
type jobxEmailNotifier struct {
	jobs jobx.Enqueuer
}

func newJobxEmailNotifier(jobs jobx.Enqueuer) *jobxEmailNotifier {
	return &jobxEmailNotifier{jobs: jobs}
}

func (n *jobxEmailNotifier) NotifyEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(notifyEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, err = n.jobs.Enqueue(ctx, jobx.Job{Type: jobTypeNotifyEmail, Queue: "notify", Payload: payload})
	return err
}

// newNotifyEmailHandler adapts a notify.Sender into a jobx.HandlerFunc so
// the worker loop can drain jobTypeNotifyEmail jobs.
func newNotifyEmailHandler(sender notify.Sender) jobx.HandlerFunc {
	return func(ctx context.Context, job *jobx.JobInfo) error {
		var p notifyEmailPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return err
		}
		return sender.Send(ctx, p.To, p.Subject, p.Body)
	}
}
