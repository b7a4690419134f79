package sandbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/traefik/yaegi/interp"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
)

// HostPackage is the name under which the interpreter sees the call bridge.
// Candidates may not use it as their package name.
const HostPackage = "boxpackhost"

const hostImportPath = "boxpack/host"

const (
	// maxIdleInstances caps the interpreters a Program keeps for reuse.
	maxIdleInstances = 8
	// maxCallsPerInstance retires an interpreter after this many calls;
	// every call adds a little compiled code to it.
	maxCallsPerInstance = 256
)

// errAbandoned aborts a call whose caller gave up before it started.
var errAbandoned = errors.New("call abandoned before it started")

// Program is a loaded candidate. It implements placement.Strategy.
//
// Each call runs in an interpreter no other call is using. When the call's
// context is done the interpreted code is stopped, and Place returns only
// once it no longer runs. An interpreter whose call was stopped or panicked
// is discarded.
type Program struct {
	name  string
	build func(ctx context.Context) (*instance, error)
	idle  chan *instance
}

func newProgram(name string, build func(ctx context.Context) (*instance, error)) *Program {
	return &Program{
		name:  name,
		build: build,
		idle:  make(chan *instance, maxIdleInstances),
	}
}

// Name implements placement.Strategy.
func (p *Program) Name() string {
	return p.name
}

// Place implements placement.Strategy.
func (p *Program) Place(ctx context.Context, items []placement.Item, space placement.Space) ([]placement.PlacedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inst, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}

	placed, err, clean := inst.call(ctx, items, space)
	if clean {
		p.release(inst)
	}
	return placed, err
}

func (p *Program) acquire(ctx context.Context) (*instance, error) {
	select {
	case inst := <-p.idle:
		return inst, nil
	default:
	}

	inst, err := p.build(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to start interpreter: %w", err)
	}
	return inst, nil
}

func (p *Program) release(inst *instance) {
	if inst.calls >= maxCallsPerInstance {
		return
	}
	select {
	case p.idle <- inst:
	default:
	}
}

// instance is one interpreter holding the evaluated candidate.
type instance struct {
	interp     *interp.Interpreter
	callSource string
	calls      int

	mu  sync.Mutex
	cur *callState
}

// callState is the bridge between one call and the interpreted code.
type callState struct {
	items []placement.Item
	space placement.Space

	placed   []placement.PlacedItem
	err      error
	returned bool

	entered   bool
	abandoned bool
	exited    chan struct{}
}

// callSource runs entry with the bridged arguments. Exit is deferred before
// Enter so that once Enter has run, Exit is guaranteed to run too, even when
// the call is stopped.
func callSource(entry string) string {
	return fmt.Sprintf(`func() {
	defer %[1]s.Exit()
	%[1]s.Enter()
	placed, err := %[2]s(%[1]s.Items(), %[1]s.Space())
	%[1]s.Return(placed, err)
}()`, HostPackage, entry)
}

// call runs the entry point once. clean reports whether the interpreter can
// be reused.
//
// The interpreter is only told to stop after the call has entered
// interpreted code. Before that point the call is marked abandoned and Enter
// aborts it, so a stop can never race with the interpreter starting up.
func (inst *instance) call(ctx context.Context, items []placement.Item, space placement.Space) (placed []placement.PlacedItem, err error, clean bool) {
	st := &callState{items: items, space: space, exited: make(chan struct{})}
	inst.mu.Lock()
	inst.cur = st
	inst.mu.Unlock()
	inst.calls++

	evalCtx, stop := context.WithCancel(context.Background())
	defer stop()
	unwatch := context.AfterFunc(ctx, func() {
		inst.mu.Lock()
		st.abandoned = true
		entered := st.entered
		inst.mu.Unlock()
		if entered {
			stop()
		}
	})

	_, evalErr := inst.interp.EvalWithContext(evalCtx, inst.callSource)
	unwatch()

	inst.mu.Lock()
	entered := st.entered
	inst.mu.Unlock()
	if entered {
		<-st.exited
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.cur = nil

	switch {
	case st.abandoned:
		return nil, ctx.Err(), false
	case evalErr != nil:
		var pe interp.Panic
		if errors.As(evalErr, &pe) {
			return nil, fmt.Errorf("candidate panicked: %v", pe.Value), false
		}
		return nil, evalErr, false
	case !st.returned:
		return nil, errors.New("candidate returned no result"), false
	}
	return st.placed, st.err, true
}

func (inst *instance) state() *callState {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.cur
}

// hostSymbols is the call bridge exported to this interpreter only.
func (inst *instance) hostSymbols() interp.Exports {
	return interp.Exports{
		hostImportPath + "/host": {
			"Enter": reflect.ValueOf(func() {
				inst.mu.Lock()
				defer inst.mu.Unlock()
				if inst.cur.abandoned {
					panic(errAbandoned)
				}
				inst.cur.entered = true
			}),
			"Exit": reflect.ValueOf(func() {
				if st := inst.state(); st != nil {
					close(st.exited)
				}
			}),
			"Items": reflect.ValueOf(func() []placement.Item {
				return inst.state().items
			}),
			"Space": reflect.ValueOf(func() placement.Space {
				return inst.state().space
			}),
			"Return": reflect.ValueOf(func(placed []placement.PlacedItem, err error) {
				inst.mu.Lock()
				defer inst.mu.Unlock()
				inst.cur.placed = placed
				inst.cur.err = err
				inst.cur.returned = true
			}),
		},
	}
}
