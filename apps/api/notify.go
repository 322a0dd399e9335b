package main

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/mailer"
)

func buildLoginAlertEmail(to, adminEmail, ip, userAgent string, at time.Time) mailer.Message {
	when := at.UTC().Format(time.RFC1123)
	subject := fmt.Sprintf("Admin sign-in: %s", adminEmail)

	body := fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6; color: #333;">
			<h2>New admin sign-in</h2>
			<p><strong>%s</strong> signed in to the site editor.</p>
			<p style="font-size: 14px; color: #666;">Time: %s<br />IP: %s<br />Client: %s</p>
			<p style="font-size: 12px; color: #999;">If this was not expected, rotate the signing secret to invalidate issued tokens.</p>
		</div>
	`, html.EscapeString(adminEmail), when, html.EscapeString(ip), html.EscapeString(userAgent))

	text := fmt.Sprintf(
		"New admin sign-in\n\n%s signed in to the site editor.\n\nTime: %s\nIP: %s\nClient: %s\n",
		adminEmail, when, ip, userAgent,
	)

	return mailer.Message{
		To:      []string{to},
		ReplyTo: adminEmail,
		Subject: subject,
		HTML:    body,
		Text:    text,
		Tags:    map[string]string{"kind": "admin_sign_in"},
	}
}

// sendLoginAlert mails LOGIN_ALERT_EMAIL in the background. Failures are
// logged and never affect the login response.
func (a *App) sendLoginAlert(adminEmail, ip, userAgent string) {
	if a.mailer == nil || a.cfg == nil || a.cfg.LoginAlertEmail == "" {
		return
	}
	msg := buildLoginAlertEmail(a.cfg.LoginAlertEmail, adminEmail, ip, userAgent, time.Now())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loginAlertTimeout)
		defer cancel()
		result, err := a.mailer.Send(ctx, msg)
		if err != nil {
			a.log.Error("failed to send login alert", "email", adminEmail, "err", err)
			return
		}
		a.log.Info("login alert sent", "email", adminEmail, "provider", a.mailer.ProviderName(), "message_id", result.ProviderMessageID)
	}()
}
