package mail

import (
	"fmt"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Config holds the outbound SMTP account and the fixed admin recipients.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	AdminTo  string
	AdminCC  string
}

// Mailer sends the store's transactional messages over SMTP. Sends are
// fire-and-forget from the business flow's point of view; the caller's
// request boundary decides what a failed send means.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// New creates a Mailer. Port 465 uses implicit TLS, which gomail enables
// via Dialer.SSL.
func New(cfg Config) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Port == 465
	return &Mailer{cfg: cfg, dialer: d}
}

func (m *Mailer) send(to, cc, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.User, "CIDALI BookStore")
	msg.SetHeader("To", to)
	if cc != "" {
		msg.SetHeader("Cc", cc)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return m.dialer.DialAndSend(msg)
}

// PaymentInitiated notifies the admin inbox that an STK push is in flight.
func (m *Mailer) PaymentInitiated(phone string, amount float64, buyerEmail string) error {
	body := fmt.Sprintf(`<h2>STK Push Initiated</h2>
<p>Phone: %s</p>
<p>Amount: Ksh %s</p>
%s<p>Status: Payment initiation in progress</p>
<br/>
<p>&mdash; CIDALI BookStore</p>`, phone, formatAmount(amount), buyerLine(buyerEmail))
	return m.send(m.cfg.AdminTo, m.cfg.AdminCC, "STK Push Initiated", body)
}

// DeliveryInitiated notifies the admin inbox that a delivery-fee STK push
// is in flight.
func (m *Mailer) DeliveryInitiated(phone string, amount float64, address string) error {
	body := fmt.Sprintf(`<h2>Delivery STK Push Initiated</h2>
<p>Phone: %s</p>
<p>Amount: Ksh %s</p>
<p>Delivery Address: %s</p>
<p>Status: Payment initiation in progress</p>
<br/>
<p>&mdash; CIDALI BookStore</p>`, phone, formatAmount(amount), address)
	return m.send(m.cfg.AdminTo, m.cfg.AdminCC, "Delivery Payment STK Initiated", body)
}

// PurchaseReceived notifies the admin inbox of a confirmed payment and
// includes the gated access link.
func (m *Mailer) PurchaseReceived(phone string, amount float64, buyerEmail, link string) error {
	body := fmt.Sprintf(`<h2>New Purchase Notification</h2>
<p>Phone: %s</p>
<p>Amount Paid: Ksh %s</p>
%s<p>eBook Link (buyer only): <a href="%s" target="_blank">Read Born Too Soon</a></p>
<br/>
<p>&mdash; CIDALI BookStore</p>`, phone, formatAmount(amount), buyerLine(buyerEmail), link)
	return m.send(m.cfg.AdminTo, m.cfg.AdminCC, "New Book Purchase Received", body)
}

// BuyerAccessLink sends the buyer their time-limited reading link.
func (m *Mailer) BuyerAccessLink(to, link string) error {
	body := fmt.Sprintf(`<h2>Payment Successful!</h2>
<p>Thank you for your purchase. You can now view your eBook below (valid for 30 minutes):</p>
<p><a href="%s" target="_blank">Read Born Too Soon</a></p>
<p>This link will expire automatically for your security.</p>
<br/>
<p>&mdash; CIDALI BookStore</p>`, link)
	return m.send(to, "", "Your eBook Purchase Confirmation", body)
}

func buyerLine(email string) string {
	if email == "" {
		return ""
	}
	return fmt.Sprintf("<p>Buyer Email: %s</p>\n", email)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
