package utils

import (
	"fmt"
	"net/smtp"
	"strings"

	"campus/config"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Campus <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		fmt.Println("Error sending email:", err)
		return err
	}
	return nil
}

// HTML wrapper shared by all outbound mail
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #1F3A5F; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1F3A5F; line-height: 1.6; }
			.content h2 { color: #1F3A5F; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #3D6EA5; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>Campus</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				Campus &mdash; learn at your own pace.<br>
				This is an automated message, please do not reply.
			</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}

// SendEnrollmentEmail confirms a completed order and the courses it unlocked.
// Fire-and-forget at call sites: a failure here never blocks an order.
func SendEnrollmentEmail(email, name, orderReference string, courseTitles []string) error {
	items := ""
	for _, title := range courseTitles {
		items += fmt.Sprintf("<li>%s</li>", title)
	}

	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your payment for order <strong>%s</strong> was successful and you now have full access to:</p>
		<div class="info-box"><ul>%s</ul></div>
		<p>Head to your dashboard to start learning.</p>`, name, orderReference, items)

	return SendEmail([]string{email}, "Enrollment confirmed", getEmailTemplate("You're enrolled!", body))
}

// SendCertificateEmail congratulates a learner on finishing a course
func SendCertificateEmail(email, name, courseTitle, certificateNumber string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Congratulations on completing <strong>%s</strong>!</p>
		<div class="info-box">Your certificate number is <strong>%s</strong>.
		Anyone can verify it on our public verification page.</div>
		<p>You can download the PDF from your certificates page.</p>`, name, courseTitle, certificateNumber)

	return SendEmail([]string{email}, "Your certificate is ready", getEmailTemplate("Course completed!", body))
}
