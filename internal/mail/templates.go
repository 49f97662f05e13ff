package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var baseTemplate = template.Must(template.New("mail").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #4F46E5;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Heading}}</h1>
    </div>
    <div class="content">
        <h2>{{.Title}}</h2>
        <p>{{.Intro}}</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">{{.ButtonLabel}}</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.Link}}</p>

        <p style="margin-top: 30px;">{{.Outro}}</p>
    </div>
    <div class="footer">
        <p>This link will expire in {{.Expiry}}.</p>
        <p>&copy; 2026 inkcircle. All rights reserved.</p>
    </div>
</body>
</html>
`))

type templateData struct {
	Heading     string
	Title       string
	Intro       string
	ButtonLabel string
	Link        string
	Outro       string
	Expiry      string
}

func renderTemplate(data templateData) (string, error) {
	var buf bytes.Buffer
	if err := baseTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute mail template: %w", err)
	}
	return buf.String(), nil
}

// RenderVerificationEmail builds the account-verification mail body
func RenderVerificationEmail(verificationLink string) (string, error) {
	return renderTemplate(templateData{
		Heading:     "Welcome to inkcircle!",
		Title:       "Verify your email address",
		Intro:       "Thank you for signing up! Please click the button below to verify your email address and activate your account.",
		ButtonLabel: "Verify Email Address",
		Link:        verificationLink,
		Outro:       "If you didn't create an account, you can safely ignore this email.",
		Expiry:      "24 hours",
	})
}

// RenderPasswordResetEmail builds the password-reset mail body
func RenderPasswordResetEmail(resetLink string) (string, error) {
	return renderTemplate(templateData{
		Heading:     "Password Reset Request",
		Title:       "Reset your password",
		Intro:       "You requested to reset your password. Click the button below to create a new password.",
		ButtonLabel: "Reset Password",
		Link:        resetLink,
		Outro:       "If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.",
		Expiry:      "1 hour",
	})
}
