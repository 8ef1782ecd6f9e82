package http

import (
	"errors"
	"fmt"
)

var errUnsupportedMessage = errors.New("unsupported message type")

func errInvalidPayload(msgType string) error {
	return fmt.Errorf("invalid %s payload", msgType)
}
