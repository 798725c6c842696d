// Package cli реализует команды Autopost.
//
// # Обзор
//
// Команды работают с Service (его реализует autopost.Manager) внутри
// одного процесса: job'ы живут в памяти, поэтому отложенная публикация
// и автоудаление срабатывают, пока процесс запущен. Для этого есть:
//   - флаг --wait у publish и schedule: ждать, пока job'ы поста отработают
//   - console: интерактивная сессия поверх одного долгоживущего Manager
//
// # Ключевые компоненты
//
// ## Service
//
// Интерфейс операций над постами. Команды получают его через svcFn —
// замыкание, которое лениво открывает Manager после парсинга флагов.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: autopost list --json | jq .
//
// ## Commands
//
//   - posts: publish, schedule, delete, show, list
//   - jobs: ожидающие job'ы
//   - time: now, convert
//   - console: интерактивная сессия, опционально /metrics и /healthz
//   - events: чтение событий из RabbitMQ
package cli
