// Package mq публикует события постов в RabbitMQ и читает их обратно.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — конверт Message и публикация событий
//   - consumer.go   — потребление событий из очереди autopost.events
//   - notifier.go   — Notifier для autopost.Manager поверх Publisher
//
// Типы сообщений совпадают с типами событий и routing keys:
//   - post.scheduled — пост запланирован
//   - post.published — пост опубликован (сразу или по расписанию)
//   - post.deleted   — пост удалён пользователем или по истечении срока
//
// Exchanges:
//   - autopost.posts — topic, события постов
//   - autopost.dlq   — fanout, сообщения, которые не удалось разобрать
//
// Адаптеры площадок подписываются на autopost.posts своей очередью
// или читают общую autopost.events.
package mq
