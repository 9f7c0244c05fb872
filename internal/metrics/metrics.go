// Package metrics объявляет счётчики Prometheus для операций, которые тратят кредиты.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций в метке outcome.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics: счётчики сервиса.
type Metrics struct {
	TrainingSubmissions *prometheus.CounterVec
	TrainingFinished    *prometheus.CounterVec
	Generations         *prometheus.CounterVec
	CreditsDebited      *prometheus.CounterVec
	PaymentsApplied     prometheus.Counter
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TrainingSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "training_submissions_total",
			Help:      "Training submissions by outcome.",
		}, []string{"outcome"}),
		TrainingFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "training_finished_total",
			Help:      "Trainings observed reaching a terminal status.",
		}, []string{"status"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "generations_total",
			Help:      "Image generations by outcome.",
		}, []string{"outcome"}),
		CreditsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "credits_debited_total",
			Help:      "Credits debited by kind.",
		}, []string{"kind"}),
		PaymentsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "payments_applied_total",
			Help:      "Payment events that topped up credits.",
		}),
	}
	reg.MustRegister(m.TrainingSubmissions, m.TrainingFinished, m.Generations, m.CreditsDebited, m.PaymentsApplied)
	return m
}

// NewNoop возвращает незарегистрированные счётчики, удобно для тестов.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}
