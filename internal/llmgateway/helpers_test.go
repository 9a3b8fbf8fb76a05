package llmgateway

import "errors"

func errOf(msg string) error {
	return errors.New(msg)
}
