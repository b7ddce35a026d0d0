// Package label renders the printable shipping label customers attach to
// the envelope when they post original documents.
package label

import (
	"bytes"
	"fmt"
	"html/template"
)

// Address is the fixed receiving address for posted documents.
var Address = []string{
	"Legaliseringstjänst Sverige AB",
	"Att: Orderhantering",
	"Box 38",
	"121 25 Stockholm-Globen",
	"Sverige",
}

var page = template.Must(template.New("label").Parse(`<!DOCTYPE html>
<html lang="sv">
<head>
<meta charset="utf-8">
<title>Fraktsedel{{if .OrderNumber}} {{.OrderNumber}}{{end}}</title>
<style>
@page { size: A4; margin: 20mm; }
body { font-family: Arial, Helvetica, sans-serif; }
.label { border: 2px dashed #000; padding: 12mm; width: 120mm; }
.to { font-size: 16pt; line-height: 1.4; }
.order { margin-top: 10mm; font-size: 14pt; }
.blank { display: inline-block; border-bottom: 1px solid #000; width: 60mm; }
.hint { margin-top: 8mm; font-size: 10pt; color: #444; }
@media print { .hint { display: none; } }
</style>
</head>
<body onload="window.print()">
<div class="label">
<div class="to">{{range .Address}}{{.}}<br>{{end}}</div>
<div class="order">Ordernummer: {{if .OrderNumber}}<strong>{{.OrderNumber}}</strong>{{else}}<span class="blank">&nbsp;</span>{{end}}</div>
</div>
<p class="hint">Klipp ut etiketten och fäst den på kuvertet.</p>
</body>
</html>
`))

// Render returns the label page. An empty orderNumber leaves a line to
// write the number by hand.
func Render(orderNumber string) ([]byte, error) {
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Address     []string
		OrderNumber string
	}{Address, orderNumber})
	if err != nil {
		return nil, fmt.Errorf("render shipping label: %w", err)
	}
	return buf.Bytes(), nil
}
