package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	return &sns.PublishOutput{}, args.Error(0)
}

func TestSendSMS(t *testing.T) {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+15550001111" &&
			aws.ToString(in.Message) == "code 123456" &&
			aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue) == "Transactional" &&
			aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue) == "ADMIN"
	})).Return(nil)

	s := &sender{client: p, senderID: "ADMIN"}
	require.NoError(t, s.SendSMS(context.Background(), "+15550001111", "code 123456"))
	p.AssertExpectations(t)
}

func TestSendSMS_Error(t *testing.T) {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything).Return(errors.New("opted out"))

	err := (&sender{client: p}).SendSMS(context.Background(), "+1", "x")
	assert.ErrorContains(t, err, "publish sms: opted out")
}
