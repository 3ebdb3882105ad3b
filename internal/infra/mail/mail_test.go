package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
	"github.com/xavierca1/lead-funnel/internal/logger"
)

var testLinks = NewLinks("https://funnel.example.com", "https://pay.example.com/cohort")

func TestLinks(t *testing.T) {
	u, err := url.Parse(testLinks.Payment("a+b@x.io"))
	require.NoError(t, err)
	assert.Equal(t, "funnel.example.com", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/api/tracking/link/"))
	assert.Equal(t, "a+b@x.io", u.Query().Get("email"))
	assert.Equal(t, "https://pay.example.com/cohort", u.Query().Get("url"))

	assert.NotEqual(t, testLinks.Pixel("a@x.io"), testLinks.Pixel("a@x.io"))
	assert.Contains(t, testLinks.Reply("a@x.io"), "/api/tracking/reply/")
}

func TestRenderAllKinds(t *testing.T) {
	r, err := NewRenderer("Consulting Cohort 101", testLinks)
	require.NoError(t, err)
	lead := &entity.Lead{Email: "a@x.io", Name: "<Ann>"}

	for _, kind := range entity.AllKinds {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := r.Render(lead, kind)
			require.NoError(t, err)
			assert.Equal(t, "a@x.io", msg.To)
			assert.Contains(t, msg.Subject, "Consulting Cohort 101")
			assert.Contains(t, msg.HTML, "&lt;Ann&gt;")
			assert.Contains(t, msg.HTML, "/api/tracking/pixel/")
			assert.Contains(t, msg.HTML, "/api/tracking/reply/")
			assert.Contains(t, msg.Text, "/api/tracking/link/")
		})
	}

	_, err = r.Render(lead, entity.MessageKind("nope"))
	assert.Error(t, err)
}

type captureTransport struct {
	msgs []Message
	err  error
}

func (c *captureTransport) Deliver(_ context.Context, m Message) error {
	c.msgs = append(c.msgs, m)
	return c.err
}

func TestEmailSenderSend(t *testing.T) {
	r, err := NewRenderer("Cohort", testLinks)
	require.NoError(t, err)
	tr := &captureTransport{}
	s := NewEmailSender(r, tr, logger.Nop())

	require.NoError(t, s.Send(context.Background(), &entity.Lead{Email: "a@x.io", Name: "Ann"}, entity.KindReminder1))
	require.Len(t, tr.msgs, 1)
	assert.Contains(t, tr.msgs[0].Subject, "Reminder")

	tr.err = assert.AnError
	err = s.Send(context.Background(), &entity.Lead{Email: "a@x.io", Name: "Ann"}, entity.KindFinalReminder)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSendGridTransport(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendPath, r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewSendGridTransport("sg-key", srv.URL, "hello@cohort.io", "Cohort")
	err := tr.Deliver(context.Background(), Message{To: "a@x.io", ToName: "Ann", Subject: "Hi", HTML: "<p>x</p>", Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", body["subject"])
}

func TestSendGridTransportErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	tr := NewSendGridTransport("bad", srv.URL, "hello@cohort.io", "Cohort")
	err := tr.Deliver(context.Background(), Message{To: "a@x.io", Subject: "Hi", Text: "x", HTML: "x"})
	assert.ErrorContains(t, err, "401")
}

func TestSMTPTransportUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	tr := NewSMTPTransport("127.0.0.1", addr.Port, "", "", "hello@cohort.io", "Cohort")
	err = tr.Deliver(context.Background(), Message{To: "a@x.io", Subject: "Hi", Text: "x", HTML: "x"})
	assert.Error(t, err)
}

func TestSMTPTransportHonorsContext(t *testing.T) {
	// accepts the connection and never greets
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	tr := NewSMTPTransport("127.0.0.1", ln.Addr().(*net.TCPAddr).Port, "", "", "hello@cohort.io", "Cohort")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = tr.Deliver(ctx, Message{To: "a@x.io", Subject: "Hi", Text: "x", HTML: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConsoleTransport(t *testing.T) {
	var buf bytes.Buffer
	tr := NewConsoleTransport(logger.NewWithWriter("production", &buf))

	require.NoError(t, tr.Deliver(context.Background(), Message{To: "a@x.io", Subject: "Hello"}))
	assert.Contains(t, buf.String(), "a@x.io")
	assert.Contains(t, buf.String(), "Hello")
}
