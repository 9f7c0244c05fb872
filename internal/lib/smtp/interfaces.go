// Package smtp открывает аутентифицированные STARTTLS-сессии с почтовым сервером.
package smtp

import "io"

// Client: часть *smtp.Client, которая нужна для отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает SMTP-сессию и знает адрес отправителя.
type Dialer interface {
	Connect() (Client, error)
	From() string
}
