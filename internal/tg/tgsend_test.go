package tg

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, f.err
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestIsSystemErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate_limited", errors.New("Too Many Requests: retry after 5 (429)"), true},
		{"bad_gateway", errors.New("502 Bad Gateway"), true},
		{"timeout", errors.New("net/http: request canceled (Client.Timeout exceeded): timeout"), true},
		{"bad_request", errors.New("Bad Request: chat not found"), false},
		{"parse_entities", errors.New("can't parse entities: 500 in text"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSystemErr(tc.err); got != tc.want {
				t.Fatalf("isSystemErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestSend_PassesThrough(t *testing.T) {
	api := &fakeAPI{}
	m, err := Send(api, tgbotapi.NewMessage(42, "oi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.MessageID != 1 || len(api.sent) != 1 {
		t.Fatalf("message not sent: %+v", api.sent)
	}

	api.err = errors.New("Bad Request: message is too long")
	if _, err := Send(api, tgbotapi.NewMessage(42, "oi")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Request(api, tgbotapi.NewMessage(42, "oi")); err == nil {
		t.Fatal("expected error from Request")
	}
}
