package services

import (
	"Meduroam/models"
	"Meduroam/utils"
	"context"
	"log"
)

// EmailEscalationNotifier pages the on-call physician mailbox when a
// consult escalates. Notification failures are logged only; escalation
// itself is already recorded in the workflow and audit trail.
type EmailEscalationNotifier struct {
	OnCallEmail string
}

func NewEmailEscalationNotifier(onCallEmail string) *EmailEscalationNotifier {
	return &EmailEscalationNotifier{OnCallEmail: onCallEmail}
}

func (n *EmailEscalationNotifier) NotifyEscalation(ctx context.Context, consultID, reason string, urgency models.Urgency) {
	if n.OnCallEmail == "" {
		log.Printf("No on-call email configured, skipping escalation notification for consult %s", consultID)
		return
	}
	if err := utils.SendEscalationEmail(n.OnCallEmail, consultID, reason, string(urgency)); err != nil {
		log.Printf("Failed to send escalation email for consult %s: %v", consultID, err)
	}
}
