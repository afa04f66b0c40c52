package emails

import (
	"fmt"
	"html"
	"time"
)

const (
	themePrimary   = "#15803D"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F3F4F6"
	themeWhite     = "#FFFFFF"
	supportAddress = "support@vectorium.earth"
)

// EmailLayout wraps content in the branded HTML shell shared by every message.
func EmailLayout(contentHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Vectorium</title>
  <style>
    body { margin: 0; padding: 0; background-color: %s; -webkit-font-smoothing: antialiased; }
    body, td, p, a, li { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %s; }
    .content-body p { margin: 0 0 16px 0; font-size: 15px; line-height: 1.6; }
    .content-body h1 { font-size: 22px; margin: 0 0 20px 0; font-weight: 700; }
    .content-body a { color: %s; font-weight: 600; text-decoration: none; }
    .field td { padding: 6px 0; font-size: 15px; vertical-align: top; }
    .field td.label { width: 140px; font-weight: 600; color: %s; }
    .vx-button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 28px; border-radius: 6px; font-weight: 600; text-decoration: none !important; }
    .footer-text { color: %s; font-size: 12px; line-height: 1.5; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="background-color: %s;">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="width: 600px; background-color: %s; border-radius: 8px;">
          <tr><td align="center" style="padding: 36px 0 24px 0; font-size: 22px; font-weight: 700; color: %s;">Vectorium</td></tr>
          <tr><td class="content-body" style="padding: 0 48px 24px 48px;">%s</td></tr>
          <tr>
            <td align="center" style="padding: 24px 48px 32px 48px;">
              <p class="footer-text">Questions? Write to <a href="mailto:%s">%s</a></p>
              <p class="footer-text">&copy; %d Vectorium. All rights reserved.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		themeBgBody, themeTextMain, themePrimary, themeTextMuted, themePrimary, themeTextMuted,
		themeBgBody, themeWhite, themePrimary, contentHTML,
		supportAddress, supportAddress, time.Now().Year())
}

// fieldTable renders label/value rows with every value escaped.
func fieldTable(rows [][2]string) string {
	out := `<table class="field" role="presentation" cellspacing="0" cellpadding="0">`
	for _, r := range rows {
		out += fmt.Sprintf(`<tr><td class="label">%s</td><td>%s</td></tr>`, html.EscapeString(r[0]), html.EscapeString(r[1]))
	}
	return out + `</table>`
}
