package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
)

// SignatureHeader заголовок с подписью вебхука.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance допустимое расхождение метки времени подписи.
const DefaultTolerance = 5 * time.Minute

// ErrNoWebhookSecret: секрет вебхука не задан, проверять подпись нечем.
var ErrNoWebhookSecret = errors.New("webhook secret is not configured")

// ConstructEvent проверяет подпись вида "t=<unix>,v1=<hex>" и декодирует событие.
// Подпись: HMAC-SHA256(secret, "<t>.<payload>"). Любая ошибка проверки
// оборачивает common.ErrInvalidSignature. Пустой secret: ErrNoWebhookSecret.
func ConstructEvent(payload []byte, header, secret string, now time.Time, tolerance time.Duration) (Event, error) {
	const op = "paymentprovider.ConstructEvent"
	if secret == "" {
		return Event{}, fmt.Errorf("%s: %w", op, ErrNoWebhookSecret)
	}
	ts, signatures, err := parseSignature(header)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %v: %w", op, err, common.ErrInvalidSignature)
	}

	expected := Sign(payload, secret, ts)
	valid := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return Event{}, fmt.Errorf("%s: signature mismatch: %w", op, common.ErrInvalidSignature)
	}
	if tolerance > 0 {
		if age := now.Sub(time.Unix(ts, 0)); age > tolerance || age < -tolerance {
			return Event{}, fmt.Errorf("%s: timestamp outside tolerance: %w", op, common.ErrInvalidSignature)
		}
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}

// Sign возвращает hex-подпись payload для метки времени ts.
func Sign(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignature(header string) (int64, []string, error) {
	var (
		ts         int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, errors.New("bad timestamp")
			}
			ts = parsed
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if ts == 0 {
		return 0, nil, errors.New("missing timestamp")
	}
	if len(signatures) == 0 {
		return 0, nil, errors.New("missing v1 signature")
	}
	return ts, signatures, nil
}
