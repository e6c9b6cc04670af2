package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// message is the shared shape every template renders.
type message struct {
	SiteName    string
	Heading     string
	Paragraphs  []string
	ActionLabel string
	ActionURL   string
	Footer      string
}

func (m message) email(to, subject string) Email {
	return Email{To: to, Subject: subject, TextBody: m.text(), HTMLBody: m.html()}
}

func (m message) text() string {
	var buf bytes.Buffer
	buf.WriteString(m.Heading + "\n\n")
	for _, p := range m.Paragraphs {
		buf.WriteString(p + "\n\n")
	}
	if m.ActionURL != "" {
		fmt.Fprintf(&buf, "%s: %s\n\n", m.ActionLabel, m.ActionURL)
	}
	if m.Footer != "" {
		buf.WriteString(m.Footer + "\n")
	}
	return buf.String()
}

func (m message) html() string {
	var buf bytes.Buffer
	_ = layout.Execute(&buf, m)
	return buf.String()
}

var layout = template.Must(template.New("layout").Parse(layoutHTML))

// WelcomeData fills the welcome email sent after registration.
type WelcomeData struct {
	SiteName string
	Name     string
	Role     string // passenger | driver
}

// BuildWelcomeEmail greets a newly registered user.
func BuildWelcomeEmail(to string, d WelcomeData) Email {
	body := []string{fmt.Sprintf("Hi %s, your %s account is ready.", d.Name, d.SiteName)}
	if d.Role == "driver" {
		body = append(body, "Upload your license and vehicle documents in the app so we can verify your account before your first trip.")
	} else {
		body = append(body, "You can request your first ride from the app right away.")
	}
	return message{
		SiteName:   d.SiteName,
		Heading:    "Welcome to " + d.SiteName,
		Paragraphs: body,
	}.email(to, fmt.Sprintf("Welcome to %s", d.SiteName))
}

// PasswordResetData fills the reset-link email.
type PasswordResetData struct {
	SiteName  string
	Name      string
	ResetURL  string
	ExpiresIn string // e.g., "1 hour"
}

// BuildPasswordResetEmail carries a single-use reset link.
func BuildPasswordResetEmail(to string, d PasswordResetData) Email {
	return message{
		SiteName: d.SiteName,
		Heading:  "Reset your password",
		Paragraphs: []string{
			fmt.Sprintf("Hi %s, we received a request to reset your %s password.", d.Name, d.SiteName),
			fmt.Sprintf("This link expires in %s.", d.ExpiresIn),
		},
		ActionLabel: "Reset password",
		ActionURL:   d.ResetURL,
		Footer:      "If you did not request this, you can ignore this email.",
	}.email(to, fmt.Sprintf("Reset your %s password", d.SiteName))
}

// BuildPasswordChangedEmail confirms a password change.
func BuildPasswordChangedEmail(to, siteName, name string) Email {
	return message{
		SiteName: siteName,
		Heading:  "Your password was changed",
		Paragraphs: []string{
			fmt.Sprintf("Hi %s, the password for your %s account was just changed.", name, siteName),
		},
		Footer: "If this was not you, reset your password immediately and contact support.",
	}.email(to, fmt.Sprintf("Your %s password was changed", siteName))
}

// AdminInviteData fills the email sent when an admin account is created.
type AdminInviteData struct {
	SiteName     string
	Name         string
	TempPassword string
	LoginURL     string
}

// BuildAdminInviteEmail sends a new admin their temporary password.
func BuildAdminInviteEmail(to string, d AdminInviteData) Email {
	return message{
		SiteName: d.SiteName,
		Heading:  "You have been added as an administrator",
		Paragraphs: []string{
			fmt.Sprintf("Hi %s, an administrator account was created for you on %s.", d.Name, d.SiteName),
			"Temporary password: " + d.TempPassword,
			"You will be asked to choose a new password after signing in.",
		},
		ActionLabel: "Sign in",
		ActionURL:   d.LoginURL,
	}.email(to, fmt.Sprintf("Your %s admin account", d.SiteName))
}

// BuildSecurityAlertEmail warns an admin about repeated failed sign-ins.
func BuildSecurityAlertEmail(to, siteName, name, ip string, attempts int) Email {
	return message{
		SiteName: siteName,
		Heading:  "Repeated failed sign-in attempts",
		Paragraphs: []string{
			fmt.Sprintf("Hi %s, there were %d failed sign-in attempts on your %s admin account.", name, attempts, siteName),
			"Most recent attempt from " + ip + ".",
		},
		Footer: "If this was not you, change your password.",
	}.email(to, fmt.Sprintf("%s security alert", siteName))
}

// ExpiryData fills expiring/expired notices for permits and subscriptions.
type ExpiryData struct {
	SiteName string
	Name     string
	What     string // e.g., "electronic vehicle permit EVP-1234"
	EndDate  string
	Expired  bool
}

// BuildExpiryEmail tells a driver something is about to lapse or has lapsed.
func BuildExpiryEmail(to string, d ExpiryData) Email {
	heading := fmt.Sprintf("Your %s expires on %s", d.What, d.EndDate)
	subject := fmt.Sprintf("%s expiring soon", capitalize(d.What))
	body := "Renew it in the app to keep accepting rides."
	if d.Expired {
		heading = fmt.Sprintf("Your %s has expired", d.What)
		subject = fmt.Sprintf("%s expired", capitalize(d.What))
		body = "You cannot accept rides that require it until it is renewed."
	}
	return message{
		SiteName:   d.SiteName,
		Heading:    heading,
		Paragraphs: []string{fmt.Sprintf("Hi %s,", d.Name), body},
	}.email(to, subject)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #111827;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px;">
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #111827;">{{.Heading}}</h2>
              {{range .Paragraphs}}<p style="margin: 0 0 12px; font-size: 15px; color: #374151;">{{.}}</p>
              {{end}}
              {{if .ActionURL}}<p style="margin: 24px 0; text-align: center;">
                <a href="{{.ActionURL}}" style="display: inline-block; padding: 12px 24px; background-color: #111827; color: #ffffff; text-decoration: none; border-radius: 6px; font-weight: 500;">{{.ActionLabel}}</a>
              </p>{{end}}
            </td>
          </tr>
          {{if .Footer}}<tr>
            <td style="padding: 16px 32px 32px; font-size: 13px; color: #6b7280;">{{.Footer}}</td>
          </tr>{{end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
