package emails

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender       `json:"sender"`
	To          []BrevoTo         `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	TextContent string            `json:"textContent,omitempty"`
	ReplyTo     *BrevoReplyTo     `json:"replyTo,omitempty"`
	Attachment  []BrevoAttachment `json:"attachment,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// BrevoAttachment carries file content base64 encoded.
type BrevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Attachment is a file sent along with a message.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is one outgoing email. ReplyTo lets staff answer the submitter directly.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	ReplyTo     *BrevoReplyTo
	Attachments []Attachment
}

// Sender delivers transactional email. Implementations with no API key configured are no-ops.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	SendWelcome(ctx context.Context, toEmail, firstName string) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API. Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string // overrides brevoAPI in tests
	SiteURL  string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@vectorium.earth"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// Enabled reports whether an API key is configured.
func (c *BrevoClient) Enabled() bool {
	return c != nil && c.APIKey != ""
}

// Send posts one message to Brevo.
func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	if !c.Enabled() {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Vectorium"},
		To:          []BrevoTo{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
		ReplyTo:     msg.ReplyTo,
	}
	if body.ReplyTo == nil {
		body.ReplyTo = &BrevoReplyTo{Email: supportAddress, Name: "Vectorium Support"}
	}
	for _, a := range msg.Attachments {
		body.Attachment = append(body.Attachment, BrevoAttachment{
			Name:    a.Name,
			Content: base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// SendWelcome greets a new account after signup.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if !c.Enabled() {
		return nil
	}
	if firstName == "" {
		firstName = "there"
	}
	return c.Send(ctx, Message{
		To:      toEmail,
		Subject: "Welcome to Vectorium",
		HTML:    EmailLayout(welcomeContent(firstName, c.SiteURL)),
	})
}

func welcomeContent(userName, siteURL string) string {
	if siteURL == "" {
		siteURL = "https://vectorium.earth"
	}
	return fmt.Sprintf(`
    <h1>Welcome to Vectorium, %s!</h1>
    <p>Your account is ready. Your demo wallet has been funded so you can browse verified carbon projects and try a purchase straight away.</p>
    <p>Please confirm your email address using the link we sent separately before signing in.</p>
    <center><a href="%s/marketplace" class="vx-button">Explore the Marketplace</a></center>
    <p style="margin-top: 20px; font-size: 13px; color: #666;">If you did not sign up for this account, please contact our support team.</p>
`, html.EscapeString(userName), siteURL)
}

// CareersApplication renders the internal notice for a job application.
func CareersApplication(name, email, phone, position string) (subject, htmlBody, text string) {
	subject = "New Career Application: " + position
	rows := [][2]string{{"Name", name}, {"Email", email}, {"Phone", phone}, {"Position", position}}
	return subject, EmailLayout("<h1>New career application</h1>" + fieldTable(rows) + "<p>The CV is attached.</p>"), plainText(rows)
}

// ContactSales renders the internal notice for a sales inquiry.
func ContactSales(name, email, mobile, question string) (subject, htmlBody, text string) {
	rows := [][2]string{{"Name", name}, {"Email", email}, {"Mobile", mobile}, {"Question", question}}
	return "New Contact Sales Inquiry", EmailLayout("<h1>New sales inquiry</h1>" + fieldTable(rows)), plainText(rows)
}

// SupportQuery renders the internal notice for a support request.
func SupportQuery(name, email, subjectLine, message string) (subject, htmlBody, text string) {
	rows := [][2]string{{"Name", name}, {"Email", email}, {"Subject", subjectLine}, {"Message", message}}
	return "Support Query: " + subjectLine, EmailLayout("<h1>New support query</h1>" + fieldTable(rows)), plainText(rows)
}

func plainText(rows [][2]string) string {
	var b bytes.Buffer
	for _, r := range rows {
		fmt.Fprintf(&b, "%s: %s\n", r[0], r[1])
	}
	return b.String()
}
