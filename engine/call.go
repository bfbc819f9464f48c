package engine

// Call is the handle for one outbound call. The caller waits on Done (or
// blocks in Result) for exactly one resolution: the peer's reply, the peer's
// error, a transport failure, or connection close. One-way calls resolve
// immediately after the request is written.
type Call struct {
	ID     int64
	Method string
	OneWay bool

	// Value and Err are valid once Done is closed.
	Value any
	Err   error

	done chan struct{}
}

func newCall(id int64, method string) *Call {
	return &Call{ID: id, Method: method, done: make(chan struct{})}
}

// Done is closed when the call resolves.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result blocks until the call resolves.
func (c *Call) Result() (any, error) {
	<-c.done
	return c.Value, c.Err
}

// finish resolves the call. The pending table hands each call to exactly one
// resolver, so finish runs at most once.
func (c *Call) finish(v any, err error) {
	c.Value, c.Err = v, err
	close(c.done)
}

// callTable allocates call ids from a single monotonically increasing counter
// and tracks calls awaiting a reply. All access happens under the engine
// mutex; a call is registered before its request is transmitted so a fast
// reply can never miss the entry.
type callTable struct {
	nextID  int64
	pending map[int64]*Call
}

func newCallTable() callTable {
	return callTable{pending: make(map[int64]*Call)}
}

func (t *callTable) allocate() int64 {
	id := t.nextID
	t.nextID++
	return id
}

func (t *callTable) register(c *Call) {
	t.pending[c.ID] = c
}

func (t *callTable) remove(id int64) (*Call, bool) {
	c, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return c, ok
}

// drain empties the table, returning every outstanding call.
func (t *callTable) drain() []*Call {
	out := make([]*Call, 0, len(t.pending))
	for _, c := range t.pending {
		out = append(out, c)
	}
	t.pending = make(map[int64]*Call)
	return out
}
