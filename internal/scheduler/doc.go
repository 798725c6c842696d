// Package scheduler реализует планировщик одноразовых job'ов.
//
// Scheduler хранит job'ы в min-heap по времени срабатывания и
// запускает их из одной фоновой горутины (dispatcher).
//
// Структура:
//   - scheduler.go — Scheduler: RegisterAt, Cancel, ListPending, цикл dispatcher
//   - heap.go      — очередь с приоритетом (fire_time, порядок регистрации)
//   - errors.go    — ошибки планировщика
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{Logger: logger})
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
//
//	id, err := sched.RegisterAt(fireTime, scheduler.Tag{PostID: postID, Kind: domain.JobKindPublish},
//	    func(ctx context.Context, job scheduler.Job) error {
//	        return publish(ctx, job.PostID)
//	    })
//
// Гарантии:
//   - job'ы срабатывают в порядке неубывания fire_time, равные — в порядке регистрации
//   - время срабатывания строго в будущем, «запустить сейчас» не поддерживается
//   - ошибка или паника callback'а логируется и не влияет на остальные job'ы
//   - после возврата Stop ни один job не сработает
//
// Job'ы живут только в памяти: после перезапуска процесса они не восстанавливаются.
package scheduler
