// Package store хранит посты в JSON-файле.
//
// Файл — объект, ключ которого ID поста, а значение — запись поста.
// Порядок ключей совпадает с порядком вставки и сохраняется между
// перезапусками.
//
// Запись атомарная: данные пишутся во временный файл в той же директории,
// синхронизируются на диск и переименовываются поверх целевого файла.
// Прерванная запись не портит ранее сохранённые данные.
//
// Store потокобезопасен для отдельных вызовов. Последовательности
// «прочитать → изменить → сохранить» должны выполняться под внешней
// критической секцией (см. autopost.Manager).
package store
