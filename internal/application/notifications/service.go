package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"vectorium-backend/internal/application/emails"
	"vectorium-backend/internal/application/uploads"
	"vectorium-backend/internal/domain"
	"vectorium-backend/internal/pkg/metrics"
	"vectorium-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxCVBytes bounds the careers attachment.
const MaxCVBytes = 5 << 20

var ErrDeliveryFailed = errors.New("Failed to send message")

// Service stores form submissions and forwards them to the team inbox.
type Service struct {
	DB       *gorm.DB
	Mailer   emails.Sender
	Uploads  *uploads.Service // optional CV archive
	NotifyTo string
}

// File is an uploaded attachment held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type CareersInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
	CV       *File  `json:"-"`
}

func (in CareersInput) Validate() error {
	fe := validation.FieldErrors{}.Required(map[string]string{
		"name": in.Name, "email": in.Email, "phone": in.Phone, "position": in.Position,
	}).Email("email", in.Email)
	if strings.TrimSpace(in.Phone) != "" && !validation.IsValidPhone(in.Phone) {
		fe["phone"] = "must be a valid phone number"
	}
	switch {
	case in.CV == nil || len(in.CV.Data) == 0:
		fe["cv"] = "is required"
	case len(in.CV.Data) > MaxCVBytes:
		fe["cv"] = "must be at most " + strconv.Itoa(MaxCVBytes>>20) + " MB"
	}
	return fe.Err()
}

type ContactSalesInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Question string `json:"question"`
}

func (in ContactSalesInput) Validate() error {
	fe := validation.FieldErrors{}.Required(map[string]string{
		"name": in.Name, "email": in.Email, "mobile": in.Mobile, "question": in.Question,
	}).Email("email", in.Email)
	if strings.TrimSpace(in.Mobile) != "" && !validation.IsValidPhone(in.Mobile) {
		fe["mobile"] = "must be a valid phone number"
	}
	return fe.Err()
}

type SupportInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (in SupportInput) Validate() error {
	return validation.FieldErrors{}.Required(map[string]string{
		"name": in.Name, "email": in.Email, "subject": in.Subject, "message": in.Message,
	}).Email("email", in.Email).Err()
}

// SubmitCareers records an application, archives the CV when storage is
// configured and emails the team with the CV attached.
func (s *Service) SubmitCareers(ctx context.Context, in CareersInput) (*domain.Inquiry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var attachmentURL *string
	if s.Uploads != nil {
		res, err := s.Uploads.ArchiveCV(ctx, in.CV.Name, in.CV.ContentType, in.CV.Data)
		if err != nil {
			log.Warn().Err(err).Str("file", in.CV.Name).Msg("cv archive failed, continuing with email only")
		} else {
			attachmentURL = &res.PublicURL
		}
	}

	subject, body, text := emails.CareersApplication(in.Name, in.Email, in.Phone, in.Position)
	msg := emails.Message{
		Subject:     subject,
		HTML:        body,
		Text:        text,
		ReplyTo:     &emails.BrevoReplyTo{Email: in.Email, Name: in.Name},
		Attachments: []emails.Attachment{{Name: uploads.SafeName(in.CV.Name), Content: in.CV.Data}},
	}
	return s.submit(ctx, domain.InquiryCareers, in.Name, in.Email, in, attachmentURL, msg)
}

func (s *Service) SubmitContactSales(ctx context.Context, in ContactSalesInput) (*domain.Inquiry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	subject, body, text := emails.ContactSales(in.Name, in.Email, in.Mobile, in.Question)
	msg := emails.Message{Subject: subject, HTML: body, Text: text, ReplyTo: &emails.BrevoReplyTo{Email: in.Email, Name: in.Name}}
	return s.submit(ctx, domain.InquiryContactSales, in.Name, in.Email, in, nil, msg)
}

func (s *Service) SubmitSupport(ctx context.Context, in SupportInput) (*domain.Inquiry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	subject, body, text := emails.SupportQuery(in.Name, in.Email, in.Subject, in.Message)
	msg := emails.Message{Subject: subject, HTML: body, Text: text, ReplyTo: &emails.BrevoReplyTo{Email: in.Email, Name: in.Name}}
	return s.submit(ctx, domain.InquirySupport, in.Name, in.Email, in, nil, msg)
}

// submit stores the inquiry first so nothing is lost when delivery fails.
func (s *Service) submit(ctx context.Context, kind domain.InquiryKind, name, email string, payload interface{}, attachmentURL *string, msg emails.Message) (*domain.Inquiry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	inq := domain.Inquiry{
		Kind:          kind,
		Name:          strings.TrimSpace(name),
		Email:         strings.TrimSpace(email),
		Payload:       datatypes.JSON(raw),
		AttachmentURL: attachmentURL,
	}
	if err := s.DB.WithContext(ctx).Create(&inq).Error; err != nil {
		return nil, err
	}

	msg.To = s.NotifyTo
	if s.Mailer == nil || msg.To == "" {
		log.Warn().Str("kind", string(kind)).Str("inquiry_id", inq.ID.String()).Msg("no mailer or recipient configured, inquiry stored only")
		metrics.InquiriesTotal.WithLabelValues(string(kind), "false").Inc()
		return &inq, nil
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Str("inquiry_id", inq.ID.String()).Msg("inquiry email failed")
		metrics.InquiriesTotal.WithLabelValues(string(kind), "false").Inc()
		return &inq, ErrDeliveryFailed
	}

	if err := s.DB.WithContext(ctx).Model(&inq).Update("delivered", true).Error; err != nil {
		log.Error().Err(err).Str("inquiry_id", inq.ID.String()).Msg("failed to mark inquiry delivered")
	}
	inq.Delivered = true
	metrics.InquiriesTotal.WithLabelValues(string(kind), "true").Inc()
	return &inq, nil
}
