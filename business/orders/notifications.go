package orders

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"

	"storefront/domain"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/shopspring/decimal"
)

type pushCopy struct {
	Title string
	Body  string
}

// statusPushCopy holds the push text for every order status. Body is a
// format string taking the order id.
var statusPushCopy = map[domain.OrderStatus]pushCopy{
	domain.OrderStatusProcessing: {Title: "Order Received", Body: "Your order #%d is being prepared."},
	domain.OrderStatusShipped:    {Title: "Order Shipped", Body: "Your order #%d is on its way."},
	domain.OrderStatusDelivered:  {Title: "Order Delivered", Body: "Your order #%d has been delivered. Enjoy!"},
	domain.OrderStatusCompleted:  {Title: "Order Completed", Body: "Thank you! Your order #%d is complete."},
	domain.OrderStatusCancelled:  {Title: "Order Cancelled", Body: "Your order #%d has been cancelled."},
}

var fallbackPushCopy = pushCopy{Title: "Order Update", Body: "The status of your order #%d has changed."}

func pushMessage(status domain.OrderStatus, orderID uint) (title, body string) {
	c, ok := statusPushCopy[status]
	if !ok {
		c = fallbackPushCopy
	}
	return c.Title, fmt.Sprintf(c.Body, orderID)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Your order #{{.OrderID}} has been delivered</h2>
  <p>Hi {{.Name}}, thank you for shopping with us. Here is your receipt.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr>
    {{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.Price}}</td><td align="right">{{.Subtotal}}</td></tr>
    {{end}}
  </table>
  <p>Items: {{.ItemsTotal}}<br>Tax: {{.Tax}}<br>Shipping: {{.Shipping}}</p>
  <p><strong>Grand total: {{.GrandTotal}}</strong></p>
</body>
</html>`))

type receiptLine struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

type receiptData struct {
	OrderID    uint
	Name       string
	Items      []receiptLine
	ItemsTotal string
	Tax        string
	Shipping   string
	GrandTotal string
}

func renderReceipt(order domain.Orders, name string) (string, error) {
	data := receiptData{
		OrderID:    order.ID,
		Name:       name,
		Tax:        order.TaxPrice.StringFixed(2),
		Shipping:   order.ShippingPrice.StringFixed(2),
		GrandTotal: order.TotalPrice.StringFixed(2),
	}

	itemsTotal := decimal.Zero
	for _, item := range order.OrderItems {
		subtotal := item.Subtotal()
		itemsTotal = itemsTotal.Add(subtotal)
		data.Items = append(data.Items, receiptLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
			Subtotal: subtotal.StringFixed(2),
		})
	}
	data.ItemsTotal = itemsTotal.StringFixed(2)

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// notifyStatusChange delivers the receipt email (Delivered only) and the
// push message concurrently. Delivery failures are logged and counted, the
// caller never sees them.
func (s *OrdersService) notifyStatusChange(ctx context.Context, order domain.Orders) {
	customer := order.Customer
	if customer == nil {
		logger.Warn("Order has no customer loaded, skipping notifications", "order_id", order.ID)
		return
	}

	// the status write is already committed; a cancelled request must not
	// abort delivery
	ctx = context.WithoutCancel(ctx)

	var wg sync.WaitGroup

	if order.OrderStatus == domain.OrderStatusDelivered && customer.User != nil && customer.User.Email != "" {
		wg.Go(func() {
			s.sendReceipt(ctx, order, customer)
		})
	}

	if customer.PushToken != nil && *customer.PushToken != "" {
		token := *customer.PushToken
		wg.Go(func() {
			s.sendStatusPush(ctx, order, token)
		})
	}

	wg.Wait()
}

func (s *OrdersService) sendReceipt(ctx context.Context, order domain.Orders, customer *domain.Customer) {
	name := customer.FullName()
	body, err := renderReceipt(order, name)
	if err != nil {
		metrics.Notifications.WithLabelValues("email", "failed").Inc()
		logger.Error("Failed to render receipt", err, "order_id", order.ID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.NotificationTimeout)
	defer cancel()

	subject := fmt.Sprintf("Receipt for order #%d", order.ID)
	if err := s.mailer.SendEmail(ctx, name, customer.User.Email, subject, body); err != nil {
		metrics.Notifications.WithLabelValues("email", "failed").Inc()
		logger.Warn("Failed to send receipt email", err, "order_id", order.ID)
		return
	}
	metrics.Notifications.WithLabelValues("email", "sent").Inc()
}

func (s *OrdersService) sendStatusPush(ctx context.Context, order domain.Orders, token string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.NotificationTimeout)
	defer cancel()

	title, body := pushMessage(order.OrderStatus, order.ID)
	if err := s.pusher.SendPush(ctx, token, title, body); err != nil {
		metrics.Notifications.WithLabelValues("push", "failed").Inc()
		logger.Warn("Failed to send push notification", err, "order_id", order.ID)
		return
	}
	metrics.Notifications.WithLabelValues("push", "sent").Inc()
}
