package models

import "time"

// CreditPack описывает пакет кредитов, привязанный к цене у платёжного провайдера.
type CreditPack struct {
	PriceID           string `yaml:"price_id" json:"price_id"`
	Name              string `yaml:"name" json:"name"`
	TrainingCredits   int    `yaml:"training_credits" json:"training_credits"`
	GenerationCredits int    `yaml:"generation_credits" json:"generation_credits"`
}

// PaymentEvent: подтверждённая провайдером оплата, начисляющая кредиты.
// EventID уникален, повторная доставка того же события кредиты не начисляет.
type PaymentEvent struct {
	EventID           string
	UserUID           string
	PriceID           string
	TrainingCredits   int
	GenerationCredits int
	CreatedAt         time.Time
}
