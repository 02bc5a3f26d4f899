package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// Links builds the frontend URLs embedded in account emails.
type Links struct {
	base string
}

func NewLinks(frontendURL string) Links {
	return Links{base: strings.TrimRight(frontendURL, "/")}
}

func (l Links) Verify(token string) string {
	return l.build("verify", token)
}

func (l Links) Reset(token string) string {
	return l.build("reset", token)
}

func (l Links) build(action, token string) string {
	return fmt.Sprintf("%s/auth/%s?token=%s", l.base, action, url.QueryEscape(token))
}

type Message struct {
	Subject string
	Body    string
}

func VerificationMessage(username, link string) Message {
	return Message{
		Subject: "Verify your email",
		Body:    fmt.Sprintf("Hello %s,\n\nPlease verify your account using the link below:\n%s\n\nThank you!", username, link),
	}
}

func ResetMessage(username, link string) Message {
	return Message{
		Subject: "Password Reset Request",
		Body:    fmt.Sprintf("Hello %s,\n\nReset your password using this link:\n%s\n\nIf you didn't request this, please ignore.", username, link),
	}
}
