package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Subjects of the messages rendered here.
const (
	SubjectVerification = "Verify your CourseCloud account"
	SubjectPasswordOTP  = "Password reset OTP"
)

// VerificationBody renders the account verification email. The link points
// at the client's verify page with the token in the path.
func VerificationBody(clientURL, name, token string, validity time.Duration) (string, error) {
	link := strings.TrimRight(clientURL, "/") + "/verify/" + url.PathEscape(token)
	return render("verify.html", map[string]any{
		"Name":     name,
		"Link":     link,
		"Validity": humanDuration(validity),
	})
}

// OTPBody renders the password reset email.
func OTPBody(otp string, validity time.Duration) (string, error) {
	return render("otp.html", map[string]any{
		"OTP":      otp,
		"Validity": humanDuration(validity),
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
