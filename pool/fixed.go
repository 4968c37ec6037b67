package pool

// fixed is a bounded-concurrency slot pool: at most capacity tokens exist at
// once, created lazily via newFn. Get blocks once capacity tokens are all
// checked out. This backs WorkerPool's fixed set of N worker threads —
// each dispatched task first checks out a slot, bounding the number of
// concurrently running user callbacks to capacity.
type fixed struct {
	available chan interface{}
	all       chan interface{}
	buf       chan interface{}
	newFn     func() interface{}
}

// NewFixed constructs a slot pool of the given capacity. capacity == 0
// makes Get block forever — callers that want synchronous (pool-size-0)
// execution must bypass the pool entirely rather than rely on Get.
func NewFixed(capacity uint, newFn func() interface{}) Pool {
	return &fixed{
		available: make(chan interface{}, capacity),
		all:       make(chan interface{}, capacity),
		buf:       make(chan interface{}, 1024),
		newFn:     newFn,
	}
}

func (p *fixed) Get() interface{} {
	select {
	case el := <-p.available:
		return el

	case el := <-p.buf:
		return el

	default:
		var el interface{}

		if len(p.all) < cap(p.all) {
			el = p.newFn()
		} else {
			el = <-p.all
		}

		select {
		case p.all <- el:
		case p.buf <- el:
		default:
		}
		return el
	}
}

func (p *fixed) Put(el interface{}) {
	select {
	case p.available <- el:
	case p.all <- el:
	case p.buf <- el:
	default:
	}
}
