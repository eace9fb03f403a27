package httpclient

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxPerRoute caps concurrent leases to one scheme://host:port
	DefaultMaxPerRoute = 5

	// DefaultAcquireTimeout bounds the wait for a free lease
	DefaultAcquireTimeout = 5000 * time.Millisecond

	defaultIdleConnTimeout = 90 * time.Second
	defaultKeepAlive       = 30 * time.Second
)

// PoolStats is a snapshot of the pool limits and current usage
type PoolStats struct {
	MaxTotal    int
	MaxPerRoute int
	Leased      int64
}

// limits is one generation of pool caps. SetLimits swaps in a new
// generation; leases always release into the generation they came from.
type limits struct {
	maxTotal    int
	maxPerRoute int
	total       *semaphore.Weighted

	mu     sync.Mutex
	routes map[string]*semaphore.Weighted
}

func newLimits(maxTotal, maxPerRoute int) *limits {
	return &limits{
		maxTotal:    maxTotal,
		maxPerRoute: maxPerRoute,
		total:       semaphore.NewWeighted(int64(maxTotal)),
		routes:      make(map[string]*semaphore.Weighted),
	}
}

func (l *limits) route(key string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.routes[key]
	if !ok {
		sem = semaphore.NewWeighted(int64(l.maxPerRoute))
		l.routes[key] = sem
	}
	return sem
}

// Pool bounds concurrent dispatches and owns the physical connections.
type Pool struct {
	mu             sync.RWMutex
	lim            *limits
	limiter        *rate.Limiter
	acquireTimeout time.Duration

	connectTimeout atomic.Int64
	socketTimeout  atomic.Int64
	leased         atomic.Int64
	closed         atomic.Bool

	transport *nethttp.Transport
}

// NewPool creates a pool allowing maxTotal concurrent leases overall and
// DefaultMaxPerRoute per route.
func NewPool(maxTotal int) *Pool {
	p := &Pool{
		lim:            newLimits(maxTotal, DefaultMaxPerRoute),
		acquireTimeout: DefaultAcquireTimeout,
	}
	p.transport = p.newTransport()
	return p
}

func (p *Pool) newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		Proxy:               nethttp.ProxyFromEnvironment,
		DialContext:         p.dial,
		MaxConnsPerHost:     DefaultMaxPerRoute,
		MaxIdleConnsPerHost: DefaultMaxPerRoute,
		IdleConnTimeout:     defaultIdleConnTimeout,
		ForceAttemptHTTP2:   false,
	}
}

// dial reads the timeouts on every call so a rebuild applies to new
// connections and, through deadlineConn, to the next read of existing ones.
func (p *Pool) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   time.Duration(p.connectTimeout.Load()),
		KeepAlive: defaultKeepAlive,
	}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return &deadlineConn{Conn: conn, timeout: &p.socketTimeout}, nil
}

// SetLimits installs new caps. Leases already handed out are unaffected.
func (p *Pool) SetLimits(maxTotal, maxPerRoute int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lim = newLimits(maxTotal, maxPerRoute)
}

// SetTimeouts sets the dial and per-read timeouts. Zero disables either.
func (p *Pool) SetTimeouts(connect, socket time.Duration) {
	p.connectTimeout.Store(int64(connect))
	p.socketTimeout.Store(int64(socket))
}

// SetAcquireTimeout changes how long Acquire waits for a free lease
func (p *Pool) SetAcquireTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquireTimeout = d
}

// SetRateLimit throttles acquisitions to limit per second. A limit of zero
// removes throttling.
func (p *Pool) SetRateLimit(limit float64, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limit <= 0 {
		p.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(rate.Limit(limit), burst)
}

// Transport returns the round tripper holding the pooled connections
func (p *Pool) Transport() nethttp.RoundTripper {
	return p.transport
}

// Lease is a permit to dispatch one request on a route
type Lease struct {
	pool  *Pool
	route *semaphore.Weighted
	total *semaphore.Weighted
	once  sync.Once
}

// Release returns the permit. Calling it more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.total.Release(1)
		l.route.Release(1)
		l.pool.leased.Add(-1)
	})
}

// Acquire blocks until a lease for route is free, the acquisition timeout
// elapses (ErrAcquireTimeout) or ctx is done (ctx.Err()).
func (p *Pool) Acquire(ctx context.Context, route string) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.RLock()
	lim, limiter, timeout := p.lim, p.limiter, p.acquireTimeout
	p.mu.RUnlock()

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if limiter != nil {
		if err := limiter.Wait(actx); err != nil {
			return nil, acquireError(ctx, err)
		}
	}

	routeSem := lim.route(route)
	if err := routeSem.Acquire(actx, 1); err != nil {
		return nil, acquireError(ctx, err)
	}
	if err := lim.total.Acquire(actx, 1); err != nil {
		routeSem.Release(1)
		return nil, acquireError(ctx, err)
	}

	p.leased.Add(1)
	return &Lease{pool: p, route: routeSem, total: lim.total}, nil
}

// acquireError keeps caller cancellation distinct from the pool's own deadline
func acquireError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return errors.Join(ErrAcquireTimeout, err)
}

// Stats reports the current limits and the number of leases held
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	lim := p.lim
	p.mu.RUnlock()

	return PoolStats{
		MaxTotal:    lim.maxTotal,
		MaxPerRoute: lim.maxPerRoute,
		Leased:      p.leased.Load(),
	}
}

// Closed reports whether Close has been called
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Close refuses further acquisitions and closes idle connections.
// Connections still held by in-flight requests go idle and expire later.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}
	p.transport.CloseIdleConnections()
	return nil
}

// deadlineConn bounds every Read by the current socket timeout. Writes
// re-arm the deadline too, so the transport's pending read on an idle
// connection starts counting again when a request goes out on it.
type deadlineConn struct {
	net.Conn
	timeout *atomic.Int64
}

func (c *deadlineConn) arm() error {
	var deadline time.Time
	if d := time.Duration(c.timeout.Load()); d > 0 {
		deadline = time.Now().Add(d)
	}
	return c.Conn.SetReadDeadline(deadline)
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.arm(); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.arm(); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
