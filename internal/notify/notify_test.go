package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeRedis struct {
	channel string
	payload []byte
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

type fakeMailer struct {
	to   string
	msgs []Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to string, msg Message) error {
	f.to = to
	f.msgs = append(f.msgs, msg)
	return f.err
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// ---------------------------------------------------------------------------

func TestQueue_NotifyDefaultsPriority(t *testing.T) {
	var got []river.JobArgs
	q := NewQueue(func(_ context.Context, args river.JobArgs) error {
		got = append(got, args)
		return nil
	}, discardLogger())

	require.NoError(t, q.Notify(context.Background(), NotifyArgs{UserID: uuid.New(), Title: "Approved"}))
	require.Len(t, got, 1)
	assert.Equal(t, "notify", got[0].Kind())
	assert.Equal(t, PriorityNormal, got[0].(NotifyArgs).Priority)
}

func TestQueue_SendEmail(t *testing.T) {
	var got []river.JobArgs
	q := NewQueue(func(_ context.Context, args river.JobArgs) error {
		got = append(got, args)
		return nil
	}, discardLogger())
	ctx := context.Background()

	assert.ErrorIs(t, q.SendEmail(ctx, EmailArgs{Template: "nope", Recipient: "a@b.c"}), ErrUnknownTemplate)
	assert.NoError(t, q.SendEmail(ctx, EmailArgs{Template: TemplateAppointmentApproved}), "no address is skipped")
	require.NoError(t, q.SendEmail(ctx, EmailArgs{Template: TemplateAppointmentApproved, Recipient: "a@b.c"}))
	require.Len(t, got, 1)
	assert.Equal(t, "send_email", got[0].Kind())
}

func TestQueue_InsertErrorIsReturned(t *testing.T) {
	q := NewQueue(func(context.Context, river.JobArgs) error { return errors.New("db down") }, discardLogger())
	assert.ErrorContains(t, q.Notify(context.Background(), NotifyArgs{}), "db down")
}

func TestNotifyWorker_PublishesOnUserChannel(t *testing.T) {
	fake := &fakeRedis{}
	w := NewNotifyWorker(NewRedisSink(fake))
	user := uuid.New()

	err := w.Work(context.Background(), &river.Job[NotifyArgs]{Args: NotifyArgs{UserID: user, Title: "Hi"}})
	require.NoError(t, err)
	assert.Equal(t, "notifications."+user.String(), fake.channel)

	var got NotifyArgs
	require.NoError(t, json.Unmarshal(fake.payload, &got))
	assert.Equal(t, "Hi", got.Title)
}

func TestEmailWorker_RendersAndSends(t *testing.T) {
	mailer := &fakeMailer{}
	w := NewEmailWorker(mailer)

	err := w.Work(context.Background(), &river.Job[EmailArgs]{Args: EmailArgs{
		Template:  TemplateAppointmentApproved,
		Recipient: "ada@example.com",
		Context:   map[string]string{"name": "Ada", "booking_code": "BK-ABCD2345", "link": "https://stylebook.test/a/1"},
	}})
	require.NoError(t, err)
	require.Len(t, mailer.msgs, 1)
	assert.Equal(t, "ada@example.com", mailer.to)
	assert.Equal(t, "Your appointment BK-ABCD2345 is approved", mailer.msgs[0].Subject)
	assert.Contains(t, mailer.msgs[0].Text, "Hi Ada")
	assert.Contains(t, mailer.msgs[0].HTML, `href="https://stylebook.test/a/1"`)
}

func TestEmailWorker_MailerErrorIsRetried(t *testing.T) {
	w := NewEmailWorker(&fakeMailer{err: errors.New("smtp timeout")})
	err := w.Work(context.Background(), &river.Job[EmailArgs]{Args: EmailArgs{Template: TemplateDepositProcessed, Recipient: "x@y.z"}})
	assert.ErrorContains(t, err, "smtp timeout")
}

func TestRender_EscapesHTML(t *testing.T) {
	msg, err := Render(TemplateAppointmentBooked, map[string]string{"name": "<b>Eve</b>"})
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "<b>Eve</b>")
	assert.NotContains(t, msg.HTML, "<b>Eve</b>")
}
