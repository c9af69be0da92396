// Package sl содержит небольшие помощники для логгера slog.
// Сюда вынесено формирование типовых структурированных атрибутов,
// прежде всего атрибута с текстом ошибки.
package sl

import "log/slog"

// Err оборачивает ошибку в slog.Attr с ключом "error",
// чтобы ошибки во всех обработчиках логировались одинаково.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
