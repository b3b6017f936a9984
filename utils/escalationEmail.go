package utils

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendEscalationEmail notifies the on-call resident that a consult has
// entered escalation and needs timely review.
func SendEscalationEmail(toEmail, consultID, reason string, urgency string) error {
	fromEmail := os.Getenv("SMTP_USER")

	m := gomail.NewMessage()
	m.SetHeader("From", fromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Consult escalation requires physician review")

	m.SetBody("text/plain",
		"Consult "+consultID+" has been escalated for physician review.\n"+
			"Urgency: "+urgency+"\n"+
			"Reason: "+reason+"\n\n"+
			"Please review it in the Meduroam dashboard as soon as possible.")

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
		<div style="background-color: #ffffff; margin: 20px auto; padding: 20px; border-radius: 8px; max-width: 600px;">
			<h1 style="color: #333333;">Escalated Consult</h1>
			<p style="color: #666666;">Consult <strong>` + consultID + `</strong> requires physician review.</p>
			<p style="color: #666666;">Urgency: <strong>` + urgency + `</strong></p>
			<p style="color: #666666;">Reason: ` + reason + `</p>
			<p style="color: #666666;">Please review it in the Meduroam dashboard as soon as possible.</p>
		</div>
	</body>
	</html>`
	m.AddAlternative("text/html", htmlBody)

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		log.Printf("Invalid SMTP_PORT, defaulting to 587: %v", err)
		port = 587
	}

	d := gomail.NewDialer(os.Getenv("SMTP_HOST"), port, fromEmail, os.Getenv("SMTP_PASSWORD"))
	if err := d.DialAndSend(m); err != nil {
		log.Printf("Failed to send escalation email: %v", err)
		return err
	}
	return nil
}
