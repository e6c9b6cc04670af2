package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

type capture struct {
	to, subject, text, html string
	err                     error
}

func (c *capture) SendHTML(_ context.Context, to, subject, textBody, htmlBody string) error {
	c.to, c.subject, c.text, c.html = to, subject, textBody, htmlBody
	return c.err
}

func TestNew_UsesWaffleSender(t *testing.T) {
	m := New(Config{Host: "smtp.ridehub.test", Port: 587, From: "noreply@ridehub.test"}, nil)
	if _, ok := m.smtp.(*email.Sender); !ok {
		t.Fatalf("transport = %T, want *email.Sender", m.smtp)
	}
}

func TestSend_PassesBothBodies(t *testing.T) {
	c := &capture{}
	m := &Mailer{host: "localhost", smtp: c, log: zap.NewNop()}

	e := BuildPasswordChangedEmail("rider@example.com", "RideHub", "Sam")
	if err := m.Send(context.Background(), e); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if c.to != "rider@example.com" {
		t.Fatalf("to = %q", c.to)
	}
	if c.subject != "Your RideHub password was changed" {
		t.Errorf("subject = %q", c.subject)
	}
	if c.text == "" || c.html == "" {
		t.Error("both text and html bodies should be passed through")
	}
}

func TestSend_Errors(t *testing.T) {
	ctx := context.Background()
	c := &capture{}
	m := &Mailer{host: "localhost", smtp: c, log: zap.NewNop()}
	if err := m.Send(ctx, Email{Subject: "x", TextBody: "hi"}); err == nil {
		t.Error("missing recipient should fail")
	}
	if err := m.Send(ctx, Email{To: "x@y.test", Subject: "x"}); err == nil {
		t.Error("empty body should fail")
	}

	c.err = errors.New("refused")
	if err := m.Send(ctx, Email{To: "x@y.test", TextBody: "hi"}); err == nil || !strings.Contains(err.Error(), "refused") {
		t.Errorf("relay error not surfaced: %v", err)
	}

	unconfigured := New(Config{}, nil)
	if err := unconfigured.Send(ctx, Email{To: "x@y.test", TextBody: "hi"}); err == nil {
		t.Error("missing host should fail")
	}
}

func TestTemplates(t *testing.T) {
	reset := BuildPasswordResetEmail("a@b.test", PasswordResetData{
		SiteName: "RideHub", Name: "Ana", ResetURL: "https://x.test/reset?t=1&u=2", ExpiresIn: "1 hour",
	})
	if !strings.Contains(reset.TextBody, "https://x.test/reset?t=1&u=2") {
		t.Error("text body missing raw link")
	}
	if !strings.Contains(reset.HTMLBody, "https://x.test/reset?t=1&amp;u=2") {
		t.Error("html body should escape link")
	}

	evil := BuildWelcomeEmail("a@b.test", WelcomeData{SiteName: "RideHub", Name: "<script>x</script>", Role: "passenger"})
	if strings.Contains(evil.HTMLBody, "<script>") {
		t.Error("name not escaped in html")
	}

	expired := BuildExpiryEmail("a@b.test", ExpiryData{SiteName: "RideHub", Name: "Dee", What: "electronic vehicle permit EVP-1", EndDate: "2026-01-01", Expired: true})
	if expired.Subject != "Electronic vehicle permit EVP-1 expired" {
		t.Errorf("subject = %q", expired.Subject)
	}
	soon := BuildExpiryEmail("a@b.test", ExpiryData{SiteName: "RideHub", What: "subscription", EndDate: "2026-01-01"})
	if !strings.Contains(soon.Subject, "expiring soon") {
		t.Errorf("subject = %q", soon.Subject)
	}
}
