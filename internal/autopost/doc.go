// Package autopost реализует жизненный цикл постов.
//
// Manager — единственная точка входа для изменения постов. Он:
//   - Валидирует запросы до любых изменений
//   - Переводит время публикации в каноническую зону (timezone.Converter)
//   - Сохраняет посты в JSON-файл (store.FileStore)
//   - Регистрирует job'ы публикации и автоудаления (scheduler.Scheduler)
//   - Сообщает о переходах Notifier'у
//
// Жизненный цикл поста:
//
//	PublishPost   → PUBLISHED ──(delete job)──→ удалён
//	PublishPostAt → SCHEDULED ──(publish job)──→ PUBLISHED ──(delete job)──→ удалён
//	DeletePost    → удалён из любого статуса, job'ы поста отменяются
//
// Конкурентность: все операции вида «прочитать и записать» и оба callback'а
// выполняются под одним мьютексом Manager. Callback перед изменением заново
// проверяет, что пост существует и находится в ожидаемом статусе, и иначе
// ничего не делает.
//
// Job'ы не переживают перезапуск: SCHEDULED посты из файла остаются в нём,
// но не публикуются, пропущенные срабатывания не повторяются.
package autopost
