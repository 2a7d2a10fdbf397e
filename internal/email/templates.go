package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// NotificationData fills the notification email templates
type NotificationData struct {
	RecipientName string
	CommunityName string
	Header        string
	Body          string
	URL           string
	SettingsURL   string
}

var notificationHTML = htmltemplate.Must(htmltemplate.New("notification").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 12px 24px; background-color: #2563eb; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
	</style>
</head>
<body>
	<div class="container">
		<p>Hi {{.RecipientName}},</p>
		<h2>{{.Header}}</h2>
		{{if .Body}}<blockquote>{{.Body}}</blockquote>{{end}}
		<a href="{{.URL}}" class="button">View on {{.CommunityName}}</a>
		<hr>
		<p style="color: #999; font-size: 12px;">You can change which emails you get in your <a href="{{.SettingsURL}}">notification settings</a>.</p>
	</div>
</body>
</html>
`))

var notificationText = texttemplate.Must(texttemplate.New("notification").Parse(`Hi {{.RecipientName}},

{{.Header}}
{{if .Body}}
  {{.Body}}
{{end}}
{{.URL}}

Change which emails you get: {{.SettingsURL}}
`))

// RenderNotification builds the email for a notification
func RenderNotification(to string, data NotificationData) (Email, error) {
	var html, text bytes.Buffer
	if err := notificationHTML.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render html: %w", err)
	}
	if err := notificationText.Execute(&text, data); err != nil {
		return Email{}, fmt.Errorf("render text: %w", err)
	}
	subject := data.Header
	if data.CommunityName != "" {
		subject = fmt.Sprintf("[%s] %s", data.CommunityName, data.Header)
	}
	return Email{To: to, Subject: subject, HTMLBody: html.String(), TextBody: text.String()}, nil
}
