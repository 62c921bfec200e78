package email

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/project-queyk/queyk-backend/internal/notification/domain"
	"github.com/project-queyk/queyk-backend/internal/notification/templates"
)

// Colours for the alert box, by magnitude.
const (
	colourGreen  = "#28a745"
	colourYellow = "#ffc107"
	colourOrange = "#fd7e14"
	colourRed    = "#dc3545"
)

// MagnitudeColour returns the alert box colour for magnitude.
func MagnitudeColour(m float64) string {
	switch {
	case m < 3:
		return colourGreen
	case m < 5:
		return colourYellow
	case m < 7:
		return colourOrange
	default:
		return colourRed
	}
}

var bodyTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #212529; background-color: #f1f3f5; margin: 0; padding: 20px;">
  <table cellpadding="0" cellspacing="0" border="0" width="100%" style="max-width: 600px; margin: 0 auto; background-color: white; border-radius: 12px; border: 1px solid #e9ecef;">
    <tr>
      <td style="background-color: #193867; padding: 30px 20px; border-radius: 12px 12px 0 0;">
        <h1 style="margin: 0; font-size: 28px; font-weight: bold; color: #ffd43b; text-align: center;">{{.Heading}}</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 30px;">
        {{- if .Greeting}}
        <p style="margin: 0 0 16px 0; font-size: 16px;">{{.Greeting}}</p>
        {{- end}}
        {{- if .Intro}}
        <p style="margin: 0 0 16px 0; font-size: 16px;">{{.Intro}}</p>
        {{- end}}
        <table cellpadding="0" cellspacing="0" border="0" width="100%" style="border-radius: 12px; margin: 20px 0; border: 1px solid #e9ecef">
          <tr>
            <td style="padding: 20px;">
              <p style="margin: 0; color: {{.Colour}}; font-size: 18px; font-weight: bold">{{.Message}}</p>
            </td>
          </tr>
        </table>
        {{- if .Actions}}
        <p style="margin: 0 0 16px 0; font-size: 16px;"><strong style="color: #193867;">Immediate Action Required:</strong></p>
        {{- range .Actions}}
        <p style="margin: 0 0 8px 0; font-size: 16px;">&bull; {{.}}</p>
        {{- end}}
        {{- end}}
        {{- if .Contacts}}
        <p style="margin: 16px 0 16px 0; font-size: 16px;"><strong style="color: #193867;">Emergency Contacts:</strong></p>
        {{- range .Contacts}}
        <p style="margin: 0 0 8px 0; font-size: 16px;">&bull; {{.Name}}: {{.Phone}}</p>
        {{- end}}
        {{- end}}
      </td>
    </tr>
    <tr>
      <td style="background-color: #f1f3f5; text-align: center; padding: 20px; font-size: 12px; color: #556575; border-top: 1px solid #e9ecef; border-radius: 0 0 12px 12px;">
        <p style="margin: 0;">&copy; {{.Year}} Queyk. All rights reserved.</p>
      </td>
    </tr>
  </table>
</body>
</html>
`))

type bodyData struct {
	Heading  string
	Greeting string
	Intro    string
	Colour   string
	Message  string
	Actions  []string
	Contacts []templates.Contact
	Year     int
}

// render returns the HTML and plain-text bodies for n.
func render(n domain.Notice, tpl templates.Templates, now time.Time) (html, text string, err error) {
	data := bodyData{
		Heading: n.Title,
		Colour:  colourRed,
		Message: n.Body,
		Year:    now.Year(),
	}
	if n.Kind == domain.KindEarthquake {
		data.Heading = "🚨 Earthquake Alert"
		data.Greeting = tpl.EmailGreeting
		data.Intro = tpl.EmailIntro
		data.Colour = MagnitudeColour(n.Magnitude)
		data.Actions = tpl.EmailActions
		data.Contacts = tpl.Contacts
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return buf.String(), plainText(data), nil
}

func plainText(d bodyData) string {
	var b strings.Builder
	if d.Greeting != "" {
		b.WriteString(d.Greeting + "\n\n")
	}
	if d.Intro != "" {
		b.WriteString(d.Intro + "\n\n")
	}
	b.WriteString(d.Message + "\n")
	if len(d.Actions) > 0 {
		b.WriteString("\nImmediate Action Required:\n")
		for _, a := range d.Actions {
			b.WriteString("- " + a + "\n")
		}
	}
	if len(d.Contacts) > 0 {
		b.WriteString("\nEmergency Contacts:\n")
		for _, c := range d.Contacts {
			b.WriteString("- " + c.Name + ": " + c.Phone + "\n")
		}
	}
	return b.String()
}
