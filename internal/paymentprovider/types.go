package paymentprovider

import "encoding/json"

// EventCheckoutCompleted тип события об оплаченной сессии.
const EventCheckoutCompleted = "checkout.session.completed"

// PaymentStatusPaid статус оплаченной сессии.
const PaymentStatusPaid = "paid"

// CheckoutSessionRequest параметры сессии оплаты.
type CheckoutSessionRequest struct {
	PriceID       string
	UserUID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession сессия оплаты: URL, на который отправляется пользователь.
type CheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
}

// Event вебхук провайдера.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession декодирует объект события как сессию оплаты.
func (e Event) CheckoutSession() (CheckoutSession, error) {
	var s CheckoutSession
	err := json.Unmarshal(e.Data.Object, &s)
	return s, err
}
