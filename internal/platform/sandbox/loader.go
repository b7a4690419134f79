package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
)

// DefaultLoadTimeout bounds how long evaluating a candidate's declarations
// and package initializers may take.
const DefaultLoadTimeout = 2 * time.Second

type placeSignature = func([]placement.Item, placement.Space) ([]placement.PlacedItem, error)

// Loader evaluates candidate source in fresh interpreters.
type Loader struct {
	scratchDir  string
	loadTimeout time.Duration
}

// NewLoader returns a Loader whose interpreters may only read source from
// scratchDir. The directory is created if it does not exist.
func NewLoader(scratchDir string, loadTimeout time.Duration) (*Loader, error) {
	if scratchDir == "" {
		return nil, errors.New("scratch directory cannot be empty")
	}
	if err := os.MkdirAll(scratchDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	return &Loader{scratchDir: scratchDir, loadTimeout: loadTimeout}, nil
}

// Load interprets source, resolves the entry point and checks that it has the
// exact placement signature. Any failure, including a panic while running
// package initializers, is returned as an ErrInvalidCandidate.
//
// The manifest must come from Inspect on the same source. The returned
// strategy is a *Program.
func (l *Loader) Load(ctx context.Context, name string, m *Manifest, source []byte) (placement.Strategy, error) {
	if m == nil {
		return nil, placement.NewInvalidCandidateError(StageLoad, "candidate was not inspected", nil)
	}
	if name == "" {
		return nil, errors.New("strategy name cannot be empty")
	}

	src := string(source)
	inst, err := l.instantiate(ctx, m, src)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, placement.NewInvalidCandidateError(StageLoad, "candidate took too long to load", err)
		}
		var pe *placement.PlacementError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, placement.NewInvalidCandidateError(StageLoad, "candidate failed to load", err)
	}

	p := newProgram(name, func(ctx context.Context) (*instance, error) {
		return l.instantiate(ctx, m, src)
	})
	p.release(inst)
	return p, nil
}

// instantiate evaluates source in a new interpreter and prepares it for
// calls. Package initializers are stopped after the load timeout.
func (l *Loader) instantiate(ctx context.Context, m *Manifest, source string) (inst *instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during load: %v", r)
		}
	}()

	i := interp.New(interp.Options{
		GoPath:               l.scratchDir,
		SourcecodeFilesystem: os.DirFS(l.scratchDir),
		Stdin:                eofReader{},
		Stdout:               io.Discard,
		Stderr:               io.Discard,
		Args:                 []string{},
		Env:                  []string{},
	})
	if err := i.Use(allowedSymbols()); err != nil {
		return nil, fmt.Errorf("failed to load standard library symbols: %w", err)
	}
	if err := i.Use(modelSymbols); err != nil {
		return nil, fmt.Errorf("failed to load model symbols: %w", err)
	}

	inst = &instance{interp: i}
	if err := i.Use(inst.hostSymbols()); err != nil {
		return nil, fmt.Errorf("failed to load host symbols: %w", err)
	}

	// Compiling runs no candidate code. Only execution, which runs package
	// initializers, is cancellable and bounded by the load timeout.
	prog, err := i.Compile(source)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
	defer cancel()
	if _, err := i.ExecuteWithContext(ctx, prog); err != nil {
		return nil, err
	}

	entry := m.Package + "." + EntryPoint
	v, err := i.Eval(entry)
	if err != nil {
		return nil, placement.NewInvalidCandidateError(StageLoad, "missing entry point "+EntryPointSignature, err)
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, placement.NewInvalidCandidateError(StageLoad, "entry point is not a function", nil)
	}
	if fn, ok := v.Interface().(placeSignature); !ok || fn == nil {
		return nil, placement.NewInvalidCandidateError(
			StageLoad,
			fmt.Sprintf("entry point has type %s, want func([]model.Item, model.Space) ([]model.PlacedItem, error)", v.Type()),
			nil,
		)
	}

	if _, err := i.Eval(fmt.Sprintf("import %s %q", HostPackage, hostImportPath)); err != nil {
		return nil, fmt.Errorf("failed to import host package: %w", err)
	}
	inst.callSource = callSource(entry)
	return inst, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
