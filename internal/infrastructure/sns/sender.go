package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SMSSender sends SMS messages via AWS SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type sender struct {
	client   publisher
	senderID string
}

// NewSender builds an SNS sender from a loaded AWS config. endpoint overrides the
// service endpoint when set (LocalStack).
func NewSender(awsCfg aws.Config, endpoint, senderID string) SMSSender {
	var opts []func(*sns.Options)
	if endpoint != "" {
		opts = append(opts, func(o *sns.Options) { o.BaseEndpoint = aws.String(endpoint) })
	}
	return &sender{client: sns.NewFromConfig(awsCfg, opts...), senderID: senderID}
}

// Magic codes are time sensitive, so every message is sent as Transactional.
func (s *sender) SendSMS(ctx context.Context, to, message string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(s.senderID)}
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish sms: %w", err)
	}
	return nil
}
