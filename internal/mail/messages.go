package mail

import (
	"context"
	"fmt"
	"time"
)

type HTMLRenderer interface {
	RenderHTML(name string, vars map[string]interface{}) (string, error)
}

// OTPMailer delivers password recovery codes.
type OTPMailer struct {
	sender   MailSender
	renderer HTMLRenderer
}

func (m *OTPMailer) SendOTP(ctx context.Context, toEmail string, name string, code string, expiresIn time.Duration) error {
	body, err := m.renderer.RenderHTML("mail/otp-code", map[string]interface{}{
		"name":          name,
		"otpCode":       code,
		"expireMinutes": int(expiresIn.Minutes()),
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, &Message{
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("%s is your password reset code", code),
		TextBody: fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", code, int(expiresIn.Minutes())),
		HTMLBody: body,
	})
}

func NewOTPMailer(sender MailSender, renderer HTMLRenderer) *OTPMailer {
	return &OTPMailer{sender: sender, renderer: renderer}
}
