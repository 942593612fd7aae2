package notify

import (
	"html"
	"strings"
)

type notice struct {
	Heading string
	Lines   []string
}

const footer = "This is an automated email from Puzzle Pals. Please do not reply."

func (n notice) render() (htmlBody, textBody string) {
	var h strings.Builder
	h.WriteString(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f5a623; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>`)
	h.WriteString(html.EscapeString(n.Heading))
	h.WriteString("</h1></div>\n\t\t<div class=\"content\">\n")
	for _, line := range n.Lines {
		h.WriteString("\t\t\t<p>")
		h.WriteString(html.EscapeString(line))
		h.WriteString("</p>\n")
	}
	h.WriteString("\t\t</div>\n\t\t<div class=\"footer\"><p>")
	h.WriteString(footer)
	h.WriteString("</p></div>\n\t</div>\n</body>\n</html>\n")

	var t strings.Builder
	t.WriteString(n.Heading)
	t.WriteString("\n\n")
	for _, line := range n.Lines {
		t.WriteString(line)
		t.WriteString("\n\n")
	}
	t.WriteString("---\n")
	t.WriteString(footer)
	t.WriteString("\n")

	return h.String(), t.String()
}
