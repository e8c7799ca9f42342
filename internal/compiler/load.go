package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/sortie/internal/ir"
)

//go:embed campaigns/default.cue
var defaultCampaign []byte

// DefaultSource returns the CUE source of the built-in campaign.
func DefaultSource() []byte {
	return append([]byte(nil), defaultCampaign...)
}

// Default compiles the built-in campaign.
func Default() (*ir.Campaign, error) {
	return CompileSource("default.cue", defaultCampaign)
}

// CompileSource compiles a single CUE document.
func CompileSource(filename string, src []byte) (*ir.Campaign, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCampaign(v)
}

// LoadDir builds every .cue file in dir as one CUE instance and compiles it.
func LoadDir(dir string) (*ir.Campaign, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("campaign directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("campaign directory: not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("campaign directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("campaign directory: no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("campaign directory: no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileCampaign(value)
}

// Load compiles the campaign in dir, or the built-in one when dir is empty.
func Load(dir string) (*ir.Campaign, error) {
	if dir == "" {
		return Default()
	}
	return LoadDir(dir)
}
