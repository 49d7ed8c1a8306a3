package viewer

// Loop is a single-threaded event queue. Animators post completions to it
// and the host drains it: the browser adapter after each DOM event, tests and
// the server-side renderer with Drain.
type Loop struct {
	queue []func()
}

// NewLoop creates an empty loop
func NewLoop() *Loop {
	return &Loop{}
}

// Post appends fn to the queue
func (l *Loop) Post(fn func()) {
	l.queue = append(l.queue, fn)
}

// Len returns the number of queued events
func (l *Loop) Len() int {
	return len(l.queue)
}

// Step runs the oldest queued event. It returns false if the queue was empty.
func (l *Loop) Step() bool {
	if len(l.queue) == 0 {
		return false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	fn()
	return true
}

// Drain runs events until the queue is empty, including events posted while
// draining, and returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for l.Step() {
		n++
	}
	return n
}
