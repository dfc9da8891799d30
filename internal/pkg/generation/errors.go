package generation

import (
	"errors"
	"fmt"
)

// Kind тип ошибки, который видит пользователь
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindProtocol   Kind = "protocol"
	KindDecode     Kind = "decode"
	// KindBusy предыдущий запрос к бэкенду ещё не завершён
	KindBusy Kind = "busy"
)

// Error ошибка операции генерации с указанием типа
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string) *Error {
	return NewError(KindValidation, message, nil)
}

func TransportError(message string, err error) *Error {
	return NewError(KindTransport, message, err)
}

func ProtocolError(message string, err error) *Error {
	return NewError(KindProtocol, message, err)
}

func DecodeError(message string, err error) *Error {
	return NewError(KindDecode, message, err)
}

// KindOf возвращает тип ошибки. Пустая строка, если err не *Error.
func KindOf(err error) Kind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}

// UserMessage текст для показа пользователю
func UserMessage(err error) string {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Message
	}
	return err.Error()
}
