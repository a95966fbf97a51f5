package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdesk/internal/registration/models"
)

type fakeSender struct {
	err  error
	sent []sentMessage
}

type sentMessage struct {
	to      string
	subject string
	body    string
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

func testFileLog(t *testing.T) (*FileLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emails.log")
	return NewFileLog(path), path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleEntry() models.AuditEntry {
	return models.AuditEntry{
		RequestID: 1,
		Username:  "ada",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestAdmittedRequestGoesToAdmin(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, nil, "admin@example.com", discardLogger())

	n.AdmittedRequest(context.Background(), models.RegistrationRequest{
		Username:  "ada",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Reason:    "needs shell access",
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "admin@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].subject, "ada")
	assert.Contains(t, sender.sent[0].body, "needs shell access")
}

func TestAdmittedRequestSkippedWithoutAdminEmail(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, nil, "", discardLogger())

	n.AdmittedRequest(context.Background(), models.RegistrationRequest{Username: "ada"})

	assert.Empty(t, sender.sent)
}

func TestApprovedIncludesCredential(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, nil, "admin@example.com", discardLogger())

	n.Approved(context.Background(), sampleEntry(), "s3cret-credential")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "s3cret-credential")
	assert.Contains(t, sender.sent[0].body, "ada")
}

func TestRejectedIncludesReason(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, nil, "admin@example.com", discardLogger())

	entry := sampleEntry()
	entry.RejectionReason = "No reason provided"
	n.Rejected(context.Background(), entry)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].body, "No reason provided")
}

func TestDeliveryFailureFallsBackToFileLog(t *testing.T) {
	fallback, path := testFileLog(t)
	sender := &fakeSender{err: errors.New("relay refused")}
	n := New(sender, fallback, "admin@example.com", discardLogger())

	var fallbacks int
	n.SetFallbackHook(func() { fallbacks++ })

	n.Approved(context.Background(), sampleEntry(), "s3cret-credential")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "To: ada@example.com")
	assert.Contains(t, string(content), "s3cret-credential")
	assert.Equal(t, 1, fallbacks)
}

func TestNilSenderWritesStraightToFileLog(t *testing.T) {
	fallback, path := testFileLog(t)
	n := New(nil, fallback, "admin@example.com", discardLogger())

	n.Rejected(context.Background(), sampleEntry())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Subject: Your registration request was not approved")
}

func TestFileLogAppendsMultipleMessages(t *testing.T) {
	fallback, path := testFileLog(t)

	require.NoError(t, fallback.Write("a@example.com", "first", "body one"))
	require.NoError(t, fallback.Write("b@example.com", "second", "body two"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "body one")
	assert.Contains(t, string(content), "body two")
}

func TestDeliveryFailureNeverPanicsWithoutFallback(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay refused")}
	n := New(sender, nil, "admin@example.com", discardLogger())

	assert.NotPanics(t, func() {
		n.Approved(context.Background(), sampleEntry(), "s3cret")
	})
}
