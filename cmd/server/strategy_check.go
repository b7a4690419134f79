package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/boxpack-api/internal/config"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/sandbox"
	"github.com/phrazzld/boxpack-api/internal/service/strategy"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// errNotStored is returned by checkOnlySources.Save.
var errNotStored = errors.New("strategy check never stores source")

// checkOnlySources is a source store for offline checks: nothing is stored
// and nothing is ever saved.
type checkOnlySources struct{}

func (checkOnlySources) Load(context.Context) ([]byte, error) { return nil, store.ErrStrategyNotFound }
func (checkOnlySources) Save(context.Context, []byte) error   { return errNotStored }

// checkStrategyFile runs inspection, isolated load and smoke test on the
// candidate at path and reports the outcome to out. It returns an error if
// the candidate would be rejected.
func checkStrategyFile(ctx context.Context, path string, pc config.PlacementConfig, out io.Writer) error {
	if !strings.EqualFold(filepath.Ext(path), ".go") {
		return fmt.Errorf("%s: candidate must be a .go file", path)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read candidate: %w", err)
	}

	// Validation logs go to stderr so out carries only the verdict.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	registry, err := strategy.NewRegistry(placement.SequentialStrategy{}, log, nil)
	if err != nil {
		return err
	}
	loader, err := sandbox.NewLoader(pc.ScratchDir, pc.LoadTimeout)
	if err != nil {
		return err
	}
	validator, err := strategy.NewValidator(registry, loader, checkOnlySources{}, strategy.ValidatorConfig{
		SmokeTimeout:   pc.SmokeTestTimeout,
		MaxSourceBytes: pc.MaxSourceBytes,
	}, log, nil)
	if err != nil {
		return err
	}

	cand, err := validator.Check(ctx, source)
	if err != nil {
		_, _ = fmt.Fprintf(out, "REJECTED %s: %v\n", path, err)
		return err
	}

	_, err = fmt.Fprintf(out, "OK %s: package %s, %s, sha256 %s\n",
		path, cand.Package, sandbox.EntryPointSignature, cand.SourceHash)
	return err
}
