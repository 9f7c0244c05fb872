package replicate

import (
	"fmt"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
)

// gatewayRequestError: запрос не удалось даже собрать.
type gatewayRequestError struct {
	op  string
	err error
}

func (e *gatewayRequestError) Error() string {
	return fmt.Sprintf("%s: build request: %v", e.op, e.err)
}

func (e *gatewayRequestError) Unwrap() []error {
	return []error{common.ErrGateway, e.err}
}

func newGatewayError(op, msg string) error {
	return &common.GatewayError{Op: op, Message: msg}
}
