package server

// Queue 等待配对的玩家队列（先进先出，两两出队）
type Queue struct {
	mode    Mode
	waiting []*Player
}

func NewQueue(mode Mode) *Queue {
	return &Queue{mode: mode}
}

// Len 队列长度
func (q *Queue) Len() int { return len(q.waiting) }

// Contains 玩家是否仍在队列中
func (q *Queue) Contains(p *Player) bool {
	return q.index(p) >= 0
}

// Enqueue 追加到队尾，然后尝试配对；重复入队是空操作
func (q *Queue) Enqueue(p *Player, pair func(a, b *Player)) {
	if q.Contains(p) {
		return
	}
	p.Mode = q.mode
	q.waiting = append(q.waiting, p)
	q.TryPair(pair)
}

// Remove 若玩家仍在等待则移除；已配对的玩家不在队列中，不受影响
func (q *Queue) Remove(p *Player) bool {
	i := q.index(p)
	if i < 0 {
		return false
	}
	q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
	return true
}

// TryPair 只要还有两人以上，就取出最早的两人交给 pair
// 奇数剩下的一人继续等待
func (q *Queue) TryPair(pair func(a, b *Player)) int {
	n := 0
	for len(q.waiting) >= 2 {
		a, b := q.waiting[0], q.waiting[1]
		q.waiting[0], q.waiting[1] = nil, nil
		q.waiting = q.waiting[2:]
		pair(a, b)
		n++
	}
	return n
}

func (q *Queue) index(p *Player) int {
	for i, w := range q.waiting {
		if w == p {
			return i
		}
	}
	return -1
}
