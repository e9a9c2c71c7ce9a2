package emailsvc

import (
	"encoding/json"
	"net/mail"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-records/core"
	logsvc "github.com/trezcool/masomo-records/services/logger"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	logger, _ := logsvc.NewTestLogger()
	svc := NewSendgridService(conf, logger).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:      []mail.Address{{Name: "ada", Address: "ada@example.com"}},
		Bcc:     []mail.Address{{Address: "audit@example.com"}},
		Subject: "Password Reset",
		Body:    "hello",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Password Reset", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@example.com", p.To[0].Address)
	assert.Empty(t, p.CC)
	require.Len(t, p.BCC, 1)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "hello", m.Content[0].Value)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(sgmail.GetRequestBody(m), &body))
	assert.Contains(t, body, "from")
}

func TestConsoleService_render(t *testing.T) {
	conf := core.NewTestConfig()
	logger, _ := logsvc.NewTestLogger()
	svc := NewConsoleService(conf, logger).(*consoleService)

	out := svc.render(core.EmailMessage{
		To:      []mail.Address{{Address: "ada@example.com"}},
		Subject: "Hi",
		Body:    "body text",
	})
	assert.Contains(t, out, "Subject: ["+conf.AppName+"] Hi\r\n")
	assert.Contains(t, out, "To: <ada@example.com>\r\n")
	assert.NotContains(t, out, "CC:")
	assert.Contains(t, out, "body text")
}

func TestServiceMock(t *testing.T) {
	svc := NewServiceMock()
	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Body: "x"},
		&core.EmailMessage{Body: "no recipients"},
		&core.EmailMessage{To: []mail.Address{{Address: "b@example.com"}}},
	)
	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@example.com", sent[0].To[0].Address)
}
