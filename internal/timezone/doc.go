// Package timezone нормализует время относительно канонической зоны.
//
// Структура:
//   - zone.go      — разбор имён зон (IANA и фиксированные смещения)
//   - timestamp.go — Timestamp: момент времени с зоной или без неё (naive)
//   - converter.go — Converter: перевод в каноническую зону, текущее время
//   - parse.go     — разбор пользовательского ввода: "1h", "tomorrow 10:00", "cron:..."
//   - cron.go      — вычисление следующего срабатывания cron-выражения
//   - format.go    — человекочитаемое оставшееся время
//
// Переходы на летнее время разрешаются по правилам базы зон на конкретный
// момент, а не фиксированным смещением. База зон встроена в бинарник
// (time/tzdata), поэтому не зависит от zoneinfo хоста.
package timezone
