package render

import (
	"html"

	"github.com/flosch/pongo2/v6"
)

const errorPageSource = `<html>
  <head>
    <title>Twig Error</title>
    <style>
      @import 'https://fonts.googleapis.com/css?family=Roboto+Mono';
      body {
        display: flex;
        align-items: center;
        justify-content: center;
        background-color: #0b0c12;
      }
      .error {
        color: #fff;
        padding: 10px 20px;
        font-size: 18px;
        border-left: 3px solid #a4d233;
        font-family: "Roboto Mono", monospace;
        margin: 20px;
      }
    </style>
  </head>
  <body>
    <div class="error">{{ message }}</div>
  </body>
</html>
`

var errorPageTemplate = pongo2.Must(pongo2.FromString(errorPageSource))

// ErrorPage renders the static page shown in place of a failed template. The
// message is HTML escaped.
func ErrorPage(message string) string {
	out, err := errorPageTemplate.Execute(pongo2.Context{"message": message})
	if err != nil {
		return `<html><body><div class="error">` + html.EscapeString(message) + `</div></body></html>`
	}
	return out
}
