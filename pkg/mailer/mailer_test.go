package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dance-house/config"
)

func TestNewSender_FallsBackToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSender(&config.MailConfig{}, zap.New(core))

	_, ok := s.(*logSender)
	assert.True(t, ok, "无 API Key 时应返回 logSender")

	err := s.Send(context.Background(), Message{ToAddress: "an@example.com", Subject: "hi"})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("模拟发送邮件").Len())
}

func TestNewSender_SendGrid(t *testing.T) {
	s := NewSender(&config.MailConfig{SendGridAPIKey: "SG.test", FromName: "Dance House", FromAddress: "no-reply@dancehouse.vn"}, zap.NewNop())
	_, ok := s.(*sendGridSender)
	assert.True(t, ok)
}

func TestSendGridSender_EmptyRecipient(t *testing.T) {
	s := NewSender(&config.MailConfig{SendGridAPIKey: "SG.test"}, zap.NewNop())
	err := s.Send(context.Background(), Message{Subject: "x"})
	assert.Error(t, err)
}
