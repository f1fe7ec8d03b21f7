package services

import (
	"bytes"
	"context"
	"html/template"
	"log"

	"github.com/wneessen/go-mail"

	"shopfront/internal/models"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ShopName string
}

// Mailer envoie les emails transactionnels via SMTP.
type Mailer struct {
	cfg MailConfig
}

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.ShopName == "" {
		cfg.ShopName = "Shopfront"
	}
	return &Mailer{cfg: cfg}
}

var orderConfirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Confirmation de commande</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande</h2>
		<p>Bonjour {{.Name}},</p>
		<p>Votre commande <strong>{{.OrderID}}</strong> a bien été enregistrée.</p>
		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left;">Produit</th>
					<th style="padding: 10px; text-align: left;">Quantité</th>
					<th style="padding: 10px; text-align: left;">Prix unitaire</th>
				</tr>
			</thead>
			<tbody>
			{{range .Lines}}<tr>
					<td style="padding: 10px;">{{.Name}}</td>
					<td style="padding: 10px;">{{.Quantity}}</td>
					<td style="padding: 10px;">{{.UnitPrice}}</td>
				</tr>
			{{end}}</tbody>
		</table>
		<p style="font-weight: bold;">Total : {{.Total}}</p>
		<p style="margin-top: 30px; color: #555;">Cordialement,<br><strong>L'équipe {{.Shop}}</strong></p>
	</div>
</body>
</html>`))

var statusUpdateTmpl = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Suivi de commande</title></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
	<p>Bonjour {{.Name}},</p>
	<p>Votre commande <strong>{{.OrderID}}</strong> est maintenant : <strong>{{.Status}}</strong>.</p>
	<p style="color: #555;">L'équipe {{.Shop}}</p>
</body>
</html>`))

type mailLine struct {
	Name      string
	Quantity  int
	UnitPrice string
}

type mailData struct {
	Shop    string
	Name    string
	OrderID string
	Status  string
	Total   string
	Lines   []mailLine
}

func (m *Mailer) data(name string, o *models.Order) mailData {
	d := mailData{
		Shop:    m.cfg.ShopName,
		Name:    name,
		OrderID: o.ID.String(),
		Status:  string(o.Status),
		Total:   o.Total.StringFixed(2) + " €",
	}
	for _, l := range o.Lines {
		label := l.ProductName
		if label == "" {
			label = l.ProductID.String()
		}
		d.Lines = append(d.Lines, mailLine{Name: label, Quantity: l.Quantity, UnitPrice: l.UnitPriceAtPurchase.StringFixed(2) + " €"})
	}
	return d
}

func render(t *template.Template, d mailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, to *models.Principal, o *models.Order) error {
	body, err := render(orderConfirmationTmpl, m.data(to.Name, o))
	if err != nil {
		return err
	}
	return m.send(ctx, to.Email, "Confirmation de votre commande", body)
}

func (m *Mailer) SendStatusUpdate(ctx context.Context, to *models.User, o *models.Order) error {
	body, err := render(statusUpdateTmpl, m.data(to.Name, o))
	if err != nil {
		return err
	}
	return m.send(ctx, to.Email, m.statusSubject(o.Status), body)
}

func (m *Mailer) statusSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusPaid:
		return "✅ Paiement confirmé - " + m.cfg.ShopName
	case models.OrderStatusShipped:
		return "📦 Votre commande a été expédiée - " + m.cfg.ShopName
	case models.OrderStatusCompleted:
		return "🎉 Votre commande est terminée - " + m.cfg.ShopName
	default:
		return "📋 Mise à jour de votre commande - " + m.cfg.ShopName
	}
}

func (m *Mailer) message(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := m.message(to, subject, htmlBody)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}
