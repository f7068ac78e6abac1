package email

import "freshcart-api/models"

type EmailSender interface {
	SendEmail(to, subject, body string) error
	SendOrderConfirmation(to string, order *models.Order) error
	SendDeliveryRequestAlert(to string, req *models.DeliveryRequest) error
}
