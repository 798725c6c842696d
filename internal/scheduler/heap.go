package scheduler

// entry — элемент очереди.
type entry struct {
	job   Job
	fn    Callback
	seq   uint64 // порядок регистрации, разрешает равные fire_time
	index int    // позиция в heap, нужна для heap.Remove
}

// before задаёт порядок срабатывания: по fire_time, затем FIFO.
func (e *entry) before(other *entry) bool {
	if e.job.FireTime.Equal(other.job.FireTime) {
		return e.seq < other.seq
	}
	return e.job.FireTime.Before(other.job.FireTime)
}

// jobHeap реализует heap.Interface.
type jobHeap []*entry

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool { return h[i].before(h[j]) }

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
