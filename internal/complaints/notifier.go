package complaints

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	stderrors "grievance-intake/internal/common/errors"
	"grievance-intake/internal/common/logger"
)

// SESAPI is the subset of the SES client used for status notifications,
// declared locally so tests can substitute a fake.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// StatusNotifier emails the submitter when a complaint changes status.
// Delivery is best effort; the status update itself has already committed.
type StatusNotifier struct {
	client  SESAPI
	from    string
	enabled bool
	logger  logger.Logger
}

func NewStatusNotifier(client SESAPI, from string, enabled bool, log logger.Logger) *StatusNotifier {
	return &StatusNotifier{
		client:  client,
		from:    from,
		enabled: enabled,
		logger:  log.With(map[string]interface{}{"component": "status-notifier"}),
	}
}

func (n *StatusNotifier) NotifyStatusChange(ctx context.Context, c Complaint) error {
	if !n.enabled {
		n.logger.Debug("email notifications disabled, skipping", map[string]interface{}{
			"ticket": c.TicketNumber,
		})
		return nil
	}
	if c.UserEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Complaint %s status update", c.TicketNumber)
	body := fmt.Sprintf(
		"Dear %s,\n\nYour complaint %s has been updated.\n\nStatus: %s\nDepartment: %s\n\nThank you for helping us improve public services.",
		c.UserName, c.TicketNumber, c.Status, c.DepartmentName,
	)

	input := &ses.SendEmailInput{
		Source: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: []string{c.UserEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		n.logger.WithError(err).Error("status notification failed", map[string]interface{}{
			"ticket": c.TicketNumber,
		})
		return stderrors.NewNotificationSendFailedError(err)
	}

	n.logger.Info("status notification sent", map[string]interface{}{
		"ticket": c.TicketNumber,
		"status": c.Status,
	})
	return nil
}
