// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/config"
	"github.com/tamzrod/modbus-acquire/internal/expr"
	"github.com/tamzrod/modbus-acquire/internal/pipeline"
	"github.com/tamzrod/modbus-acquire/internal/published"
	"github.com/tamzrod/modbus-acquire/internal/records"
	"github.com/tamzrod/modbus-acquire/internal/transport"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval  time.Duration
	WordOrder codec.WordOrder // for channels that do not set one
}

// Poller runs acquisition cycles: read every channel, evaluate formulas,
// publish one snapshot.
type Poller struct {
	cfg      Config
	source   records.Source
	reader   transport.Reader
	registry *expr.Registry
	store    *published.Store
	log      zerolog.Logger

	cache    *expr.Cache
	observer Observer
	now      func() time.Time

	state atomic.Int32

	// cycleMu serializes PollOnce; seq, last and hasLast are owned by the cycle.
	cycleMu sync.Mutex
	seq     uint64
	last    records.Set
	hasLast bool

	// raw is written only by the cycle goroutine, under rawMu.
	rawMu sync.RWMutex
	raw   map[int]float64
}

// Option customizes a Poller.
type Option func(*Poller)

// WithObserver receives every cycle summary (metrics, status tracking).
func WithObserver(o Observer) Option {
	return func(p *Poller) { p.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// New creates a poller. registry carries the formula functions and the
// state store they close over.
func New(
	cfg Config,
	source records.Source,
	reader transport.Reader,
	registry *expr.Registry,
	store *published.Store,
	log zerolog.Logger,
	opts ...Option,
) (*Poller, error) {
	if source == nil {
		return nil, errors.New("poller: records source required")
	}
	if reader == nil {
		return nil, errors.New("poller: transport reader required")
	}
	if store == nil {
		return nil, errors.New("poller: published store required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.WordOrder == "" {
		cfg.WordOrder = codec.ABCD
	}

	p := &Poller{
		cfg:      cfg,
		source:   source,
		reader:   reader,
		registry: registry,
		store:    store,
		log:      log.With().Str("component", "poller").Logger(),
		cache:    expr.NewCache(),
		now:      time.Now,
		raw:      make(map[int]float64),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// State reports where the poller is within a cycle.
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// RawValue returns the engine-owned raw value of channel n.
// It never waits for an in-flight cycle, so listeners may call it.
func (p *Poller) RawValue(n int) (float64, bool) {
	p.rawMu.RLock()
	defer p.rawMu.RUnlock()
	v, ok := p.raw[n]
	return v, ok
}

func (p *Poller) setRaw(n int, v float64) {
	p.rawMu.Lock()
	p.raw[n] = v
	p.rawMu.Unlock()
}

// PollOnce performs exactly one cycle. A failing channel never aborts the
// cycle. Cancellation is honoured only until Computing starts: an
// interrupted cycle publishes nothing and runs no formula, a cycle that
// reached Computing always publishes.
func (p *Poller) PollOnce(ctx context.Context) Cycle {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	defer p.setState(Idle)

	p.seq++
	start := p.now()
	c := Cycle{Seq: p.seq, At: start}

	// ------------------------------------------------------------
	// LOAD RECORDS (wholesale, every cycle)
	// ------------------------------------------------------------

	set, err := p.source.Load(ctx)
	switch {
	case err == nil:
		p.last, p.hasLast = set, true
	case p.hasLast:
		c.SourceErr = err
		set = p.last
		p.log.Warn().Err(err).Msg("records load failed, using last good set")
	default:
		c.SourceErr = err
		p.log.Error().Err(err).Msg("records load failed, no channels to poll")
	}
	c.Channels = len(set.Channels)

	known := make(map[int]bool, len(set.Channels))
	owners := make(map[int]int, len(set.Channels))
	for _, ch := range set.Channels {
		known[ch.Number] = true
		if _, taken := owners[ch.Address]; !taken {
			owners[ch.Address] = ch.Number
		}
	}
	p.rawMu.Lock()
	for n := range p.raw {
		if !known[n] {
			delete(p.raw, n)
		}
	}
	p.rawMu.Unlock()

	// ------------------------------------------------------------
	// READING
	// ------------------------------------------------------------

	p.setState(Reading)

	for _, ch := range set.Channels {
		if ctx.Err() != nil {
			return p.abort(c, start)
		}
		if cerr := p.readChannel(ch, &c); cerr != nil {
			c.Errors = append(c.Errors, cerr)
		}
	}

	// ------------------------------------------------------------
	// COMPUTING
	// ------------------------------------------------------------

	if ctx.Err() != nil {
		return p.abort(c, start)
	}
	p.setState(Computing)

	snap := &published.Snapshot{
		Cycle:    c.Seq,
		At:       start,
		Channels: make(map[int]published.ChannelValue, len(set.Channels)),
		Math:     make(map[string]float64, len(set.Math)),
	}
	named := make(map[string]float64, len(set.Channels))

	for _, ch := range set.Channels {
		x, ok := p.raw[ch.Number]
		if !ok {
			x = math.NaN()
		}
		env := &channelEnv{x: x, raw: p.raw, known: known, owners: owners}

		v, err := p.evaluate(ch.Formula, env)
		if err != nil {
			c.Errors = append(c.Errors, &ChannelError{Channel: ch.Number, Name: ch.Name, Stage: StageEvaluate, Err: err})
			v = math.NaN()
		} else {
			v = pipeline.Apply(v, ch.Low, ch.High, ch.Digits)
		}

		snap.Channels[ch.Number] = published.ChannelValue{
			Number: ch.Number,
			Name:   ch.Name,
			Unit:   ch.Unit,
			Raw:    x,
			Value:  v,
		}
		if ch.Name != "" {
			named[ch.Name] = x
		}
	}

	p.computeMath(set.Math, snap, &c, &mathEnv{
		channelEnv: channelEnv{x: math.NaN(), raw: p.raw, known: known, owners: owners},
		math:       snap.Math,
		named:      named,
	})

	// ------------------------------------------------------------
	// PUBLISHING
	// ------------------------------------------------------------

	p.setState(Publishing)

	c.Duration = p.now().Sub(start)
	snap.Duration = c.Duration
	snap.Errors = make([]error, len(c.Errors))
	for i, e := range c.Errors {
		snap.Errors[i] = e
	}

	p.store.Publish(snap)
	c.Published = true

	p.log.Debug().
		Uint64("cycle", c.Seq).
		Int("channels", c.Channels).
		Int("errors", len(c.Errors)).
		Dur("took", c.Duration).
		Msg("cycle published")

	p.observe(c)
	return c
}

func (p *Poller) abort(c Cycle, start time.Time) Cycle {
	c.Duration = p.now().Sub(start)
	p.log.Debug().Uint64("cycle", c.Seq).Msg("cycle interrupted, nothing published")
	p.observe(c)
	return c
}

func (p *Poller) observe(c Cycle) {
	if p.observer != nil {
		p.observer.ObserveCycle(c)
	}
}

// readChannel updates p.raw for one channel. Transport failures keep the
// previous raw value; decode failures, including a short response reported
// by the adapter, store NaN.
func (p *Poller) readChannel(ch config.ChannelConfig, c *Cycle) *ChannelError {
	fail := func(stage Stage, err error) *ChannelError {
		cerr := &ChannelError{Channel: ch.Number, Name: ch.Name, Stage: stage, Err: err}
		p.log.Warn().
			Int("channel", ch.Number).
			Str("name", ch.Name).
			Str("stage", string(stage)).
			Err(err).
			Msg("channel failed")
		return cerr
	}

	dt, err := codec.ParseDataType(string(ch.DataType))
	if err != nil {
		p.setRaw(ch.Number, math.NaN())
		return fail(StageDecode, err)
	}
	loc, err := address.Decode(ch.Address, dt)
	if err != nil {
		p.setRaw(ch.Number, math.NaN())
		return fail(StageDecode, err)
	}

	c.Reads++
	res, err := transport.Read(p.reader, ch.DeviceID, loc)
	if errors.Is(err, codec.ErrShortResponse) {
		p.setRaw(ch.Number, math.NaN())
		return fail(StageDecode, err)
	}
	if err != nil {
		c.ReadFailures++
		return fail(StageTransport, err)
	}

	var v float64
	if loc.Zone.IsBit() {
		v, err = codec.DecodeBits(res.Bits)
	} else {
		order := ch.WordOrder
		if order == "" {
			order = p.cfg.WordOrder
		}
		v, err = codec.DecodeRegisters(res.Registers, dt, order)
	}
	if err != nil {
		p.setRaw(ch.Number, math.NaN())
		return fail(StageDecode, err)
	}

	p.setRaw(ch.Number, v+ch.Offset)
	return nil
}

func (p *Poller) evaluate(formula string, env expr.Env) (float64, error) {
	if formula == "" {
		formula = config.DefaultFormula
	}
	e, err := p.cache.Compile(formula)
	if err != nil {
		return 0, err
	}
	return e.Eval(env, p.registry)
}

// computeMath evaluates enabled math channels in dependency order.
func (p *Poller) computeMath(ms []config.MathChannelConfig, snap *published.Snapshot, c *Cycle, env *mathEnv) {
	type entry struct {
		cfg  config.MathChannelConfig
		expr *expr.Expr
		err  error
	}

	entries := make(map[string]*entry, len(ms))
	var names []string
	for _, m := range ms {
		if !m.Enabled {
			continue
		}
		e, err := p.cache.Compile(m.Formula)
		entries[m.Name] = &entry{cfg: m, expr: e, err: err}
		names = append(names, m.Name)
	}

	deps := make(map[string][]string, len(names))
	for _, n := range names {
		ent := entries[n]
		if ent.expr == nil {
			continue
		}
		for _, v := range ent.expr.Variables() {
			if _, isMath := entries[v]; isMath {
				deps[n] = append(deps[n], v)
			}
		}
	}

	order, cyclic := mathOrder(names, deps)

	fail := func(name string, err error) {
		c.Errors = append(c.Errors, &ChannelError{Name: name, Stage: StageEvaluate, Err: err})
		snap.Math[name] = math.NaN()
		p.log.Warn().Str("math", name).Err(err).Msg("math channel failed")
	}

	for _, n := range order {
		ent := entries[n]
		switch {
		case ent.err != nil:
			fail(n, ent.err)
		case cyclic[n]:
			fail(n, ErrDependencyCycle)
		default:
			v, err := ent.expr.Eval(env, p.registry)
			if err != nil {
				fail(n, err)
				continue
			}
			snap.Math[n] = pipeline.Round(v, ent.cfg.Digits)
		}
	}
}
