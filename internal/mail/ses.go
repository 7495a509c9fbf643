package mail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESClient is the subset of the SES API used to deliver mail.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESMailSender struct {
	client SESClient
	From   string
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

func (s *SESMailSender) Send(ctx context.Context, message *Message) error {
	if err := message.validate(); err != nil {
		return err
	}
	from := message.From
	if from == "" {
		from = s.From
	}
	body := &types.Body{}
	if message.HTMLBody != "" {
		body.Html = utf8Content(message.HTMLBody)
	}
	if message.TextBody != "" || message.HTMLBody == "" {
		body.Text = utf8Content(message.TextBody)
	}
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  message.To,
			CcAddresses:  message.Cc,
			BccAddresses: message.Bcc,
		},
		Message: &types.Message{
			Subject: utf8Content(message.Subject),
			Body:    body,
		},
	})
	return err
}

func NewSESMailSender(client SESClient, from string) *SESMailSender {
	return &SESMailSender{client: client, From: from}
}
