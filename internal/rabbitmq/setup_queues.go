package rabbitmq

const prefetch = 10

// Ключи маршрутизации уведомлений.
const (
	RoutingTrainingFinished = "training.finished"
	RoutingCreditsToppedUp  = "credits.topped_up"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues возвращает очереди, которые читает отправщик писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.training_finished", RoutingKey: RoutingTrainingFinished},
		{QueueName: "notifications.credits_topped_up", RoutingKey: RoutingCreditsToppedUp},
	}
}
