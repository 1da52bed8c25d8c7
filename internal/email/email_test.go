package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/resend"
)

type mockResend struct {
	mock.Mock
}

func (m *mockResend) Send(ctx context.Context, e resend.Email) (*resend.SendResponse, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendResponse), args.Error(1)
}

func leads() []model.Lead {
	return []model.Lead{
		{Name: "Jane", Company: "Acme, Inc.", City: "Toronto", SignalType: "Exit", SourceLink: "https://x", Explanation: "Sold."},
		{Name: "Raj", Company: "Northwind", City: "Vancouver", SignalType: "IPO/SPAC", SourceLink: "https://y", Explanation: "Listed."},
	}
}

func fastSender(client resend.Client, defaultKey string) (*Sender, *string) {
	var gotKey string
	s := NewSender("Lead Scout <onboarding@resend.dev>", defaultKey, func(k string) resend.Client {
		gotKey = k
		return client
	})
	s.retry.InitialBackoff = time.Millisecond
	s.retry.MaxBackoff = time.Millisecond
	return s, &gotKey
}

func TestCompose(t *testing.T) {
	msg, err := Compose("from@example.com", Request{
		Leads:          leads(),
		ListName:       "Generate Run - 2026-03-14 09:26:53",
		RecipientEmail: "doug@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "2 New Leads Generated — Generate Run - 2026-03-14 09:26:53", msg.Subject)
	assert.Equal(t, []string{"doug@example.com"}, msg.To)
	assert.Contains(t, msg.HTML, "<strong>2</strong> leads have been generated and saved.")
	assert.Contains(t, msg.HTML, "The CSV file is attached below.")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Generate_Run_-_2026-03-14_092653.csv", msg.Attachments[0].Filename)
	assert.Contains(t, string(msg.Attachments[0].Content), `"Acme, Inc."`)
}

func TestCompose_EscapesListName(t *testing.T) {
	msg, err := Compose("f", Request{Leads: leads(), ListName: "<script>", RecipientEmail: "a@b.co"})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestCompose_NoLeads(t *testing.T) {
	_, err := Compose("f", Request{ListName: "x", RecipientEmail: "a@b.co"})
	assert.ErrorIs(t, err, ErrNoLeads)
	assert.Equal(t, "No leads to email.", err.Error())
}

func TestSend_UsesRequestKey(t *testing.T) {
	m := &mockResend{}
	m.On("Send", mock.Anything, mock.Anything).Return(&resend.SendResponse{ID: "msg-1"}, nil)
	s, gotKey := fastSender(m, "default-key")

	id, err := s.Send(context.Background(), Request{Leads: leads(), ListName: "x", RecipientEmail: "a@b.co", ResendAPIKey: "req-key"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "req-key", *gotKey)
	m.AssertExpectations(t)
}

func TestSend_MissingKey(t *testing.T) {
	m := &mockResend{}
	s, _ := fastSender(m, "")

	_, err := s.Send(context.Background(), Request{Leads: leads(), ListName: "x", RecipientEmail: "a@b.co"})
	require.Error(t, err)
	assert.True(t, resilience.IsConfig(err))
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
	m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSend_InvalidRecipient(t *testing.T) {
	s, _ := fastSender(&mockResend{}, "k")
	_, err := s.Send(context.Background(), Request{Leads: leads(), ListName: "x", RecipientEmail: "not-an-email"})
	assert.Error(t, err)
}

func TestSend_EmptyLeads(t *testing.T) {
	s, _ := fastSender(&mockResend{}, "k")
	_, err := s.Send(context.Background(), Request{ListName: "x", RecipientEmail: "a@b.co"})
	assert.ErrorIs(t, err, ErrNoLeads)
}

func TestSend_RetriesTransient(t *testing.T) {
	m := &mockResend{}
	m.On("Send", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("503"), 503)).Once()
	m.On("Send", mock.Anything, mock.Anything).
		Return(&resend.SendResponse{ID: "msg-2"}, nil).Once()
	s, _ := fastSender(m, "k")

	id, err := s.Send(context.Background(), Request{Leads: leads(), ListName: "x", RecipientEmail: "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "msg-2", id)
	m.AssertNumberOfCalls(t, "Send", 2)
}

func TestSend_PermanentErrorNotRetried(t *testing.T) {
	m := &mockResend{}
	m.On("Send", mock.Anything, mock.Anything).Return(nil, errors.New("resend: unexpected status 422"))
	s, _ := fastSender(m, "k")

	_, err := s.Send(context.Background(), Request{Leads: leads(), ListName: "x", RecipientEmail: "a@b.co"})
	require.Error(t, err)
	m.AssertNumberOfCalls(t, "Send", 1)
}
