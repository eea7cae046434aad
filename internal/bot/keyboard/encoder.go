package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CallbackDataSeparator splits the handler unique from its payload.
	CallbackDataSeparator = ":"
	// CallbackDataLimitBytes is Telegram's hard cap on callback data.
	CallbackDataLimitBytes = 64
)

// EncodeCallback joins a handler unique with its payload, refusing anything
// over Telegram's byte limit.
func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// DecodeCallback splits callback data back into unique and payload.
func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	idx := strings.Index(callbackData, CallbackDataSeparator)
	if idx == -1 {
		return callbackData, "", nil
	}

	return callbackData[:idx], callbackData[idx+len(CallbackDataSeparator):], nil
}
