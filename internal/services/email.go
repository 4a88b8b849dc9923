package services

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/pricing"
)

type orderEmailLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Total     string
	Details   string
}

type orderEmailData struct {
	OrderNumber  string
	CustomerName string
	Pickup       bool
	Address      *models.Address
	Lines        []orderEmailLine
	Subtotal     string
	Shipping     string
	Tax          string
	Total        string
}

var orderHTMLTemplate = htmltemplate.Must(htmltemplate.New("order").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Order {{.OrderNumber}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #B8860B;">Thanks for your order{{if .CustomerName}}, {{.CustomerName}}{{end}}!</h1>
    <p>Order <strong>{{.OrderNumber}}</strong> has been received.</p>
    <table style="width: 100%; border-collapse: collapse;">
      {{range .Lines}}
      <tr>
        <td>{{.Name}}{{if .Details}}<br><small>{{.Details}}</small>{{end}}</td>
        <td>{{.Quantity}} × ${{.UnitPrice}}</td>
        <td style="text-align: right;">${{.Total}}</td>
      </tr>
      {{end}}
    </table>
    <p>Subtotal: ${{.Subtotal}}<br>Shipping: ${{.Shipping}}<br>Tax: ${{.Tax}}<br><strong>Total: ${{.Total}}</strong></p>
    {{if .Pickup}}<p>We will email you when your order is ready for pickup.</p>
    {{else if .Address}}<p>Shipping to:<br>{{.Address.Name}}<br>{{.Address.Line1}}{{if .Address.Line2}}, {{.Address.Line2}}{{end}}<br>{{.Address.City}}, {{.Address.State}} {{.Address.PostalCode}}</p>{{end}}
  </div>
</body>
</html>`))

var orderTextTemplate = texttemplate.Must(texttemplate.New("order").Parse(`Thanks for your order{{if .CustomerName}}, {{.CustomerName}}{{end}}!

Order {{.OrderNumber}} has been received.
{{range .Lines}}
- {{.Name}}: {{.Quantity}} x ${{.UnitPrice}} = ${{.Total}}{{if .Details}} ({{.Details}}){{end}}{{end}}

Subtotal: ${{.Subtotal}}
Shipping: ${{.Shipping}}
Tax: ${{.Tax}}
Total: ${{.Total}}
{{if .Pickup}}
We will email you when your order is ready for pickup.
{{end}}`))

func renderOrderConfirmation(order *models.Order) (string, string, error) {
	data := orderEmailData{
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		Pickup:       order.DeliveryMethod == models.DeliveryPickup,
		Address:      order.ShippingAddress,
		Subtotal:     pricing.RoundCents(order.Subtotal).StringFixed(2),
		Shipping:     pricing.RoundCents(order.ShippingCost).StringFixed(2),
		Tax:          pricing.RoundCents(order.TaxAmount).StringFixed(2),
		Total:        pricing.RoundCents(order.Total).StringFixed(2),
	}
	for _, item := range order.Items {
		line := orderEmailLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     pricing.RoundCents(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))).StringFixed(2),
		}
		switch {
		case item.TeamName != "" && item.ChainColor != "":
			line.Details = fmt.Sprintf("%s, %s chain", item.TeamName, item.ChainColor)
		case item.TeamName != "":
			line.Details = item.TeamName
		case item.ChainColor != "":
			line.Details = item.ChainColor + " chain"
		}
		data.Lines = append(data.Lines, line)
	}

	var html, text bytes.Buffer
	if err := orderHTMLTemplate.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := orderTextTemplate.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("failed to render text template: %w", err)
	}
	return html.String(), text.String(), nil
}
