// Package statement prints settlement statements: an HTML page rendered from
// a template, converted to PDF by headless Chrome.
package statement

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	appsettlement "github.com/laixiangran/zique-assistant-platform-sub001/internal/application/settlement"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"percent": func(rate decimal.Decimal) string {
		return rate.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
	},
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format(dateLayout)
	},
	"day": func(t time.Time) string { return t.Format(dateLayout) },
}

var statementTmpl = template.Must(template.New("statement").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Settlement statement</title>
<style>
  body { font-family: "Noto Sans", "Noto Sans CJK SC", Arial, sans-serif; font-size: 10px; color: #222; }
  h1 { font-size: 16px; margin: 0 0 4px; }
  .period { color: #666; margin-bottom: 12px; }
  table { width: 100%; border-collapse: collapse; }
  th, td { border-bottom: 1px solid #ddd; padding: 3px 4px; text-align: left; }
  td.num, th.num { text-align: right; }
  .summary td { border: none; padding: 2px 12px 2px 0; }
  .missing { color: #b35c00; }
</style>
</head>
<body>
<h1>Settlement statement</h1>
<div class="period">{{date .From}} to {{date .To}} &middot; generated {{day .GeneratedAt}}</div>

<table class="summary">
  <tr><td>Pending revenue</td><td class="num">{{money .Summary.PendingRevenue}}</td><td>{{.Summary.PendingCount}} lines</td></tr>
  <tr><td>Arrived revenue</td><td class="num">{{money .Summary.ArrivedRevenue}}</td><td>{{.Summary.ArrivedCount}} lines</td></tr>
  <tr><td>Total revenue</td><td class="num">{{money .Summary.TotalRevenue}}</td><td></td></tr>
  <tr><td>Total cost</td><td class="num">{{money .Summary.TotalCost}}</td><td>{{if .Summary.MissingCostCount}}<span class="missing">{{.Summary.MissingCostCount}} without cost price</span>{{end}}</td></tr>
  <tr><td>Gross profit</td><td class="num">{{money .Summary.GrossProfit}}</td><td>{{percent .Summary.ProfitRate}}</td></tr>
  {{- with .Summary.Currency }}
  <tr><td>Currency</td><td class="num">{{.}}</td><td></td></tr>
  {{- end }}
</table>
{{- if gt (len .Summary.ByCurrency) 1 }}

<br>
<table>
  <thead>
    <tr>
      <th>Currency</th><th class="num">Pending</th><th class="num">Arrived</th>
      <th class="num">Cost</th><th class="num">Profit</th><th class="num">Rate</th>
    </tr>
  </thead>
  <tbody>
  {{- range .Summary.ByCurrency }}
    <tr>
      <td>{{.Currency}}</td>
      <td class="num">{{money .PendingRevenue}}</td>
      <td class="num">{{money .ArrivedRevenue}}</td>
      <td class="num">{{money .TotalCost}}</td>
      <td class="num">{{money .GrossProfit}}</td>
      <td class="num">{{percent .ProfitRate}}</td>
    </tr>
  {{- end }}
  </tbody>
</table>
{{- end }}

<br>
<table>
  <thead>
    <tr>
      <th>Date</th><th>Store</th><th>Order</th><th>SKU</th><th>Status</th>
      <th class="num">Qty</th><th class="num">Avg price</th><th class="num">Cost</th>
      <th class="num">Revenue</th><th class="num">Profit</th><th class="num">Rate</th>
    </tr>
  </thead>
  <tbody>
  {{- $st := . }}
  {{- range .Lines }}
    <tr>
      <td>{{day .OrderedAt}}</td>
      <td>{{$st.StoreName .StoreID}}</td>
      <td>{{.OrderNo}}</td>
      <td>{{.SKU}}</td>
      <td>{{.Status}}</td>
      <td class="num">{{.Volume}}</td>
      <td class="num">{{money .AvgPrice}} {{.Currency}}</td>
      <td class="num{{if .CostMissing}} missing{{end}}">{{if .CostMissing}}-{{else}}{{money .CostPrice}}{{end}}</td>
      <td class="num">{{money .Revenue}}</td>
      <td class="num">{{money .GrossProfit}}</td>
      <td class="num">{{percent .ProfitRate}}</td>
    </tr>
  {{- else }}
    <tr><td colspan="11">No settlement records in this period.</td></tr>
  {{- end }}
  </tbody>
</table>
</body>
</html>
`))

// HTML renders st as a standalone page
func HTML(st *appsettlement.Statement) (string, error) {
	var buf bytes.Buffer
	if err := statementTmpl.Execute(&buf, st); err != nil {
		return "", fmt.Errorf("failed to render statement: %w", err)
	}
	return buf.String(), nil
}
