package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeMessageEmailData holds data for the welcome email.
type WelcomeMessageEmailData struct {
	Email string
	Name  string
}

// EnrollmentConfirmationEmailData holds data for the "you joined" email.
type EnrollmentConfirmationEmailData struct {
	Email      string
	Name       string
	EventTitle string
	EventDate  string
	Location   string
}

// EventCancelledEmailData holds data for the email sent to attendees when an event is deleted.
type EventCancelledEmailData struct {
	Email      string
	Name       string
	EventTitle string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcomeMessage(ctx context.Context, data *WelcomeMessageEmailData) error
	SendEnrollmentConfirmation(ctx context.Context, data *EnrollmentConfirmationEmailData) error
	SendEventCancelled(ctx context.Context, data *EventCancelledEmailData) error
}
