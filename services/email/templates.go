package email

import (
	"bytes"
	"fmt"
	"html/template"

	"freshcart-api/models"
	"freshcart-api/utils"
)

const orderConfirmationTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Order {{.ID}}</title>
</head>
<body style="margin: 0; padding: 0; background-color: #f6faf3; font-family: Arial, sans-serif;">
    <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="background-color: #f6faf3;">
        <tr>
            <td align="center" style="padding: 32px 16px;">
                <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="600" style="background-color: #ffffff; border-radius: 8px;">
                    <tr>
                        <td style="padding: 24px; background-color: #2f855a; color: #ffffff; border-radius: 8px 8px 0 0;">
                            <h1 style="margin: 0; font-size: 22px;">Thank you for your order, {{.Address.Name}}!</h1>
                            <p style="margin: 8px 0 0;">Order <strong>{{.ID}}</strong> placed on {{date .CreatedAt}}</p>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 24px;">
                            <table role="presentation" width="100%" cellspacing="0" cellpadding="6" style="border-collapse: collapse;">
                                <tr style="border-bottom: 1px solid #e2e8f0; text-align: left;">
                                    <th>Item</th><th>Quantity</th><th style="text-align: right;">Amount</th>
                                </tr>
                                {{range .Lines}}
                                <tr style="border-bottom: 1px solid #edf2f7;">
                                    <td>{{.Name}}</td>
                                    <td>{{qty .}}</td>
                                    <td style="text-align: right;">{{lineTotal .}}</td>
                                </tr>
                                {{end}}
                            </table>
                            <table role="presentation" width="100%" cellspacing="0" cellpadding="4" style="margin-top: 16px;">
                                <tr><td>Subtotal</td><td style="text-align: right;">{{rupees .Subtotal}}</td></tr>
                                <tr><td>Delivery</td><td style="text-align: right;">{{rupees .DeliveryCharge}}</td></tr>
                                {{if .Coupon}}<tr><td>Coupon {{.Coupon.Coupon.Code}}</td><td style="text-align: right;">-{{rupees .Discount}}</td></tr>{{end}}
                                <tr style="font-weight: bold;"><td>Total (cash on delivery)</td><td style="text-align: right;">{{rupees .GrandTotal}}</td></tr>
                            </table>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 0 24px 24px;">
                            <h3 style="margin: 0 0 8px;">Delivering to</h3>
                            <p style="margin: 0;">{{.Address.Name}}, {{.Address.Phone}}<br>
                            {{.Address.Line1}}{{if .Address.Line2}}, {{.Address.Line2}}{{end}}<br>
                            {{if .Address.Landmark}}Near {{.Address.Landmark}}<br>{{end}}
                            {{.Address.City}} - {{.Address.PinCode}}</p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`

const deliveryRequestTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Delivery request {{.PinCode}}</title></head>
<body style="font-family: Arial, sans-serif;">
    <h2>New delivery area request</h2>
    <table cellpadding="4">
        <tr><td>Pin code</td><td><strong>{{.PinCode}}</strong></td></tr>
        {{if .Area}}<tr><td>Area</td><td>{{.Area}}</td></tr>{{end}}
        <tr><td>Name</td><td>{{.Name}}</td></tr>
        <tr><td>Phone</td><td>{{.Phone}}</td></tr>
        {{if .Email}}<tr><td>Email</td><td>{{.Email}}</td></tr>{{end}}
        {{if .Message}}<tr><td>Message</td><td>{{.Message}}</td></tr>{{end}}
        <tr><td>Received</td><td>{{date .CreatedAt}}</td></tr>
    </table>
</body>
</html>`

var funcs = template.FuncMap{
	"rupees": utils.FormatRupees,
	"date":   utils.FormatDate,
	"qty": func(line models.CartLine) string {
		if line.UnitKind == models.UnitWeightKg {
			return fmt.Sprintf("%s kg", line.Quantity.StringFixed(2))
		}
		return fmt.Sprintf("%d pcs", line.Quantity.IntPart())
	},
	"lineTotal": func(line models.CartLine) string {
		return utils.FormatRupees(utils.Round(line.UnitPrice.Mul(line.Quantity)))
	},
}

var (
	orderConfirmation = template.Must(template.New("order").Funcs(funcs).Parse(orderConfirmationTemplate))
	deliveryRequest   = template.Must(template.New("delivery_request").Funcs(funcs).Parse(deliveryRequestTemplate))
)

func RenderOrderConfirmation(order *models.Order) (string, error) {
	var buf bytes.Buffer
	if err := orderConfirmation.Execute(&buf, order); err != nil {
		return "", fmt.Errorf("failed to render order email: %w", err)
	}
	return buf.String(), nil
}

func RenderDeliveryRequestAlert(req *models.DeliveryRequest) (string, error) {
	var buf bytes.Buffer
	if err := deliveryRequest.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("failed to render delivery request email: %w", err)
	}
	return buf.String(), nil
}
